package schedmanager

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/suburail/delaycast/foundation/httpclient"
)

// CanonicalArchiveName is the archive the loader reads the schedule from.
// The publisher ships one archive per line plus this merged one.
const CanonicalArchiveName = "gtfs-lines-last"

// indexFileColumn is the index csv column holding the archive urls.
const indexFileColumn = "file"

// fetchArchives downloads the csv index at indexURL, downloads every archive
// it lists and extracts each one under workDirectory in a subdirectory named
// after the archive. Returns the archive names extracted.
func fetchArchives(log *log.Logger, workDirectory string, indexURL string) ([]string, error) {
	archiveURLs, err := fetchArchiveURLs(workDirectory, indexURL)
	if err != nil {
		return nil, err
	}
	log.Printf("index at %s lists %d archives", indexURL, len(archiveURLs))

	var archiveNames []string
	for _, archiveURL := range archiveURLs {
		archiveName, err := downloadAndExtractArchive(log, workDirectory, archiveURL)
		if err != nil {
			return nil, err
		}
		archiveNames = append(archiveNames, archiveName)
	}
	return archiveNames, nil
}

// fetchArchiveURLs downloads the index csv and collects its file column.
func fetchArchiveURLs(workDirectory string, indexURL string) ([]string, error) {
	indexFile := filepath.Join(workDirectory, "gtfs_index.csv")
	_, err := httpclient.DownloadRemoteFile(indexFile, indexURL)
	if err != nil {
		return nil, fmt.Errorf("unable to download schedule index from %s: %w", indexURL, err)
	}
	defer func() {
		_ = os.Remove(indexFile)
	}()

	file, err := os.Open(indexFile)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	csvReader := csv.NewReader(file)
	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read schedule index header: %v", err)
	}
	removeBOMIfPresent(headers)
	fileIndex := indexOf(indexFileColumn, headers)
	if fileIndex < 0 {
		return nil, fmt.Errorf("schedule index has no %q column", indexFileColumn)
	}

	var archiveURLs []string
	for {
		records, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read schedule index: %v", err)
		}
		if fileIndex < len(records) && len(records[fileIndex]) > 0 {
			archiveURLs = append(archiveURLs, records[fileIndex])
		}
	}
	return archiveURLs, nil
}

// downloadAndExtractArchive retrieves one archive and unpacks it under
// workDirectory in a subdirectory named after the archive's logical name,
// taken from the content-disposition header with the url path as fallback.
func downloadAndExtractArchive(log *log.Logger, workDirectory string, archiveURL string) (string, error) {
	resp, err := http.Get(archiveURL)
	if err != nil {
		return "", fmt.Errorf("unable to download archive from %s: %w", archiveURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d downloading archive from %s", resp.StatusCode, archiveURL)
	}

	archiveName := archiveNameFromResponse(resp, archiveURL)
	zipFile := filepath.Join(workDirectory, archiveName+".zip")
	out, err := os.Create(zipFile)
	if err != nil {
		return "", err
	}
	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("unable to save archive %s: %w", archiveName, err)
	}
	defer func() {
		_ = os.Remove(zipFile)
	}()
	log.Printf("downloaded archive %s, %d bytes", archiveName, written)

	destination := filepath.Join(workDirectory, archiveName)
	if err = extractZip(zipFile, destination); err != nil {
		return "", fmt.Errorf("unable to extract archive %s: %w", archiveName, err)
	}
	return archiveName, nil
}

// archiveNameFromResponse reads the logical archive name off the response,
// preferring the content-disposition filename.
func archiveNameFromResponse(resp *http.Response, archiveURL string) string {
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if filename := params["filename"]; filename != "" {
				return strings.TrimSuffix(path.Base(filename), ".zip")
			}
		}
	}
	if parsed, err := url.Parse(archiveURL); err == nil && path.Base(parsed.Path) != "/" {
		return strings.TrimSuffix(path.Base(parsed.Path), ".zip")
	}
	return "archive"
}

// extractZip unpacks the flat file entries of zipFile into destination.
func extractZip(zipFile string, destination string) error {
	r, err := zip.OpenReader(zipFile)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()

	if err = os.MkdirAll(destination, os.ModePerm); err != nil {
		return err
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err = extractZipEntry(f, destination); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, destination string) error {
	// flatten entry paths, the archives carry flat gtfs tables
	name := path.Base(f.Name)
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = rc.Close()
	}()

	out, err := os.Create(filepath.Join(destination, name))
	if err != nil {
		return err
	}
	_, err = io.Copy(out, rc)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}
