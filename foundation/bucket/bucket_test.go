package bucket

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestMemoryBucket(t *testing.T) {
	is := is.New(t)
	b := NewMemory()

	is.NoErr(b.Put("20160630-gtfs/gtfs-lines-last/agency.txt", strings.NewReader("agency_id,agency_name")))
	is.NoErr(b.Put("20160630-gtfs/gtfs-lines-last/routes.txt", strings.NewReader("route_id")))
	is.NoErr(b.Put("other/key", strings.NewReader("x")))

	content, err := b.Get("20160630-gtfs/gtfs-lines-last/agency.txt")
	is.NoErr(err)
	is.Equal(string(content), "agency_id,agency_name")

	_, err = b.Get("missing")
	is.True(errors.Is(err, ErrObjectNotFound))

	keys, err := b.List("20160630-gtfs/")
	is.NoErr(err)
	is.Equal(len(keys), 2)
}

func TestFilesystemBucket(t *testing.T) {
	is := is.New(t)
	b, err := NewFilesystem(t.TempDir())
	is.NoErr(err)

	is.NoErr(b.Put("20160630-gtfs/stops.txt", strings.NewReader("stop_id")))

	content, err := b.Get("20160630-gtfs/stops.txt")
	is.NoErr(err)
	is.Equal(string(content), "stop_id")

	_, err = b.Get("20160630-gtfs/missing.txt")
	is.True(errors.Is(err, ErrObjectNotFound))

	keys, err := b.List("20160630-gtfs")
	is.NoErr(err)
	is.Equal(keys, []string{"20160630-gtfs/stops.txt"})
}

func TestMirrorDirectory(t *testing.T) {
	is := is.New(t)

	directory := t.TempDir()
	is.NoErr(os.MkdirAll(filepath.Join(directory, "nested"), os.ModePerm))
	is.NoErr(os.WriteFile(filepath.Join(directory, "trips.txt"), []byte("trip_id"), 0644))
	is.NoErr(os.WriteFile(filepath.Join(directory, "nested", "stop_times.txt"), []byte("trip_id,stop_id"), 0644))

	b := NewMemory()
	is.NoErr(MirrorDirectory(b, "20160630-gtfs/gtfs-lines-last", directory))

	content, err := b.Get("20160630-gtfs/gtfs-lines-last/trips.txt")
	is.NoErr(err)
	is.Equal(string(content), "trip_id")

	content, err = b.Get("20160630-gtfs/gtfs-lines-last/nested/stop_times.txt")
	is.NoErr(err)
	is.Equal(string(content), "trip_id,stop_id")
}
