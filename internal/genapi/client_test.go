package genapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateSendsSnapshotAndDecodesEnvelope(t *testing.T) {
	t.Parallel()

	var got GenerateRequest
	var headers http.Header
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true, "formula": "Fe4O4", "spacegroup": 225,
			"lattice_parameters": {"a": 4.3, "b": 4.3, "c": 4.3, "alpha": 90, "beta": 90, "gamma": 90, "volume": 79.5},
			"atoms": [{"element": "Fe", "position": [0, 0, 0], "frac_coords": [0, 0, 0]}],
			"xyz_data": "1\n\nFe 0 0 0\n", "cif_data": "data_Fe4O4\n"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", "secret", time.Second)
	resp, err := c.Generate(context.Background(), GenerateRequest{
		SpaceGroup:  225,
		Composition: map[string]float64{"Fe": 1, "O": 1},
		NumAtoms:    8,
		Temperature: 1.0,
	})
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, method)
	require.Equal(t, "/api/generate", path)
	require.True(t, resp.Success)
	require.Equal(t, "Fe4O4", resp.Formula)
	require.Equal(t, 225, resp.SpaceGroup)
	require.NotNil(t, resp.Lattice)
	require.InDelta(t, 79.5, resp.Lattice.Volume, 1e-9)
	require.Len(t, resp.Atoms, 1)
	require.Equal(t, "data_Fe4O4\n", resp.CIF)

	require.Equal(t, 225, got.SpaceGroup)
	require.Equal(t, map[string]float64{"Fe": 1, "O": 1}, got.Composition)
	require.Equal(t, 8, got.NumAtoms)
	require.InDelta(t, 1.0, got.Temperature, 1e-9)
	require.Equal(t, "Bearer secret", headers.Get("Authorization"))
	require.NotEmpty(t, headers.Get("X-Request-ID"))
}

func TestGenerateServiceFailureEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success": false, "error": "invalid spacegroup"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, "", time.Second).Generate(context.Background(), GenerateRequest{})
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Equal(t, "invalid spacegroup", resp.Error)
}

func TestGenerateNonJSONErrorIsStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Generate(context.Background(), GenerateRequest{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestGenerateMalformedSuccessBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Generate(context.Background(), GenerateRequest{})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGenerateSuccessFlagIgnoredOnErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success": true, "formula": "X"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, "", time.Second).Generate(context.Background(), GenerateRequest{})
	require.NoError(t, err)
	require.False(t, resp.Success)
}

func TestGenerateUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", time.Second).Generate(context.Background(), GenerateRequest{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.False(t, errors.Is(err, ErrMalformedResponse))
}

func TestElements(t *testing.T) {
	t.Parallel()

	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"elements": ["H", "He", "Li"]}`))
	}))
	defer srv.Close()

	els, err := NewClient(srv.URL, "", time.Second).Elements(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/elements", path)
	require.Equal(t, []string{"H", "He", "Li"}, els)
}

func TestElementsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Elements(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
}
