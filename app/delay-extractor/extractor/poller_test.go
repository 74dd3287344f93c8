package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/suburail/delaycast/foundation/httpclient"

	"github.com/matryer/is"
)

func TestHalfWait(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    time.Duration
	}{
		{
			name:    "fast half waits out the remainder",
			elapsed: 10 * time.Second,
			want:    50 * time.Second,
		},
		{
			name:    "half finishing on the minute moves straight on",
			elapsed: 60 * time.Second,
			want:    0,
		},
		{
			name:    "half over budget moves straight on",
			elapsed: 75 * time.Second,
			want:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(halfWait(tt.elapsed), tt.want)
		})
	}
}

func TestPollStations(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gare/87276138/depart" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`<passages gare="x"></passages>`))
	}))
	defer server.Close()

	client := httpclient.NewClient(server.URL, "user", "pass", time.Second)
	p := newPoller(testLogger(), client, 6000, 3)

	stations := []string{"87276138", "87381509", "87276055"}
	results := p.pollStations(context.Background(), stations)
	is.Equal(len(results), 3)

	sort.Slice(results, func(i, j int) bool { return results[i].station8d < results[j].station8d })
	is.Equal(results[0].station8d, "87276055")
	is.True(results[0].body != nil)
	is.True(results[1].body == nil) // the 404 station yields an empty result
	is.True(results[2].body != nil)
}

func TestLoadStationIds(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "stations.csv")
	contents := "station_name,station_id\nParis Nord,87271007\nVersailles,87393157\nno code here,\n"
	is.NoErr(os.WriteFile(path, []byte(contents), 0644))

	stations, err := LoadStationIds(path)
	is.NoErr(err)
	is.Equal(stations, []string{"87271007", "87393157"})
}

func TestLoadStationIdsWithoutHeader(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "stations.csv")
	is.NoErr(os.WriteFile(path, []byte("87271007\n87393157\n"), 0644))

	stations, err := LoadStationIds(path)
	is.NoErr(err)
	is.Equal(stations, []string{"87271007", "87393157"})
}

func TestLoadStationIdsEmptyList(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "stations.csv")
	is.NoErr(os.WriteFile(path, []byte("station_id\n"), 0644))

	_, err := LoadStationIds(path)
	is.True(err != nil)
}
