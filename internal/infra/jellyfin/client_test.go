package jellyfin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, Token: "tok", Timeout: 2 * time.Second})
	require.NoError(t, err)
	c.retryDelay = time.Millisecond
	return c, srv
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{URL: "http://x"})
	assert.Error(t, err)
	_, err = New(Config{Token: "tok"})
	assert.Error(t, err)
}

func TestClient_SendsTokenHeader(t *testing.T) {
	var gotToken string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Emby-Token")
		w.Write([]byte(`{"Items":[]}`))
	}))

	_, err := c.Libraries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", gotToken)
}

func TestClient_Libraries(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Library/MediaFolders", r.URL.Path)
		w.Write([]byte(`{"Items":[{"Id":"lib1","Name":"Music"},{"Id":"lib2","Name":"Audiobooks"}]}`))
	}))

	libs, err := c.Libraries(context.Background())
	require.NoError(t, err)
	require.Len(t, libs, 2)
	assert.Equal(t, "lib1", libs[0].ID)
	assert.Equal(t, "Audiobooks", libs[1].Name)
}

func TestClient_Artists(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Artists", r.URL.Path)
		assert.Equal(t, "lib1", r.URL.Query().Get("ParentId"))
		assert.Equal(t, "true", r.URL.Query().Get("Recursive"))
		w.Write([]byte(`{"Items":[{"Id":"ar1","Name":"Ayreon","ImageTags":{"Primary":"x"}},{"Id":"ar2","Name":"Blackfield"}]}`))
	}))

	artists, err := c.Artists(context.Background(), "lib1")
	require.NoError(t, err)
	require.Len(t, artists, 2)
	assert.Equal(t, srv.URL+"/Items/ar1/Images/Primary?api_key=tok", artists[0].ImageURL)
	assert.Empty(t, artists[1].ImageURL, "no primary tag, no artwork URL")
}

func TestClient_Albums(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Items", r.URL.Path)
		assert.Equal(t, "ar1", r.URL.Query().Get("ArtistIds"))
		assert.Equal(t, "MusicAlbum,AudioBook", r.URL.Query().Get("IncludeItemTypes"))
		w.Write([]byte(`{"Items":[{"Id":"al1","Name":"Into the Electric Castle","ProductionYear":1998}]}`))
	}))

	albums, err := c.Albums(context.Background(), "ar1")
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, 1998, albums[0].Year)
}

func TestClient_AlbumTracks(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("Ids") {
		case "al1":
			w.Write([]byte(`{"Items":[{"Id":"al1","Name":"Album","IsFolder":true}]}`))
			return
		}
		assert.Equal(t, "al1", r.URL.Query().Get("ParentId"))
		assert.Equal(t, "ParentIndexNumber,IndexNumber,SortName", r.URL.Query().Get("SortBy"))
		w.Write([]byte(`{"Items":[
			{"Id":"t1","Name":"Welcome","AlbumArtist":"Ayreon","RunTimeTicks":1800000000},
			{"Id":"t2","Name":"Isis and Osiris","AlbumArtist":"Ayreon","RunTimeTicks":6600000000}
		]}`))
	}))

	tracks, err := c.AlbumTracks(context.Background(), "al1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "t1", tracks[0].ID)
	assert.Equal(t, float64(180), tracks[0].DurationSeconds)
	assert.Equal(t, float64(660), tracks[1].DurationSeconds)
	assert.Equal(t, srv.URL+"/Audio/t1/stream.mp3?api_key=tok", tracks[0].StreamURL)
}

func TestClient_AlbumTracks_SingleFile(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "book1", r.URL.Query().Get("Ids"), "single files must not be expanded")
		w.Write([]byte(`{"Items":[{"Id":"book1","Name":"A Book","IsFolder":false,"RunTimeTicks":360000000000,"Overview":"About things."}]}`))
	}))

	tracks, err := c.AlbumTracks(context.Background(), "book1")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "book1", tracks[0].ID)
	assert.Equal(t, float64(36000), tracks[0].DurationSeconds)
	assert.Equal(t, "About things.", tracks[0].Overview)
}

func TestClient_AlbumTracks_Unknown(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Items":[]}`))
	}))

	tracks, err := c.AlbumTracks(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"Items":[{"Id":"lib1","Name":"Music"}]}`))
	}))

	libs, err := c.Libraries(context.Background())
	require.NoError(t, err)
	assert.Len(t, libs, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Libraries(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
