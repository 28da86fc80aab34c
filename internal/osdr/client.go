// Package osdr talks to the NASA Open Science Data Repository API: file
// listings per accession, GLDS to OSD accession resolution, and ISA archive
// download.
package osdr

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	simple_util "github.com/liserjrqlxue/simple-util"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public OSDR API root.
const DefaultBaseURL = "https://osdr.nasa.gov"

// isaArchivePattern recognizes ISA archive entries in a file listing.
const isaArchivePattern = `.*-ISA\.zip$|.*metadata.*-ISA\.zip$`

// RemoteFile is one entry of an accession's file listing.
type RemoteFile struct {
	FileName  string `json:"file_name"`
	RemoteURL string `json:"remote_url"`
}

// Client queries the OSDR API. File listings are cached per accession, so a
// runsheet build with many URL-mapped columns hits the API once.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger

	filesByAccession map[string][]RemoteFile
	osdByGLDS        map[string]string
}

// NewClient builds a client against the public API.
func NewClient(log *zap.Logger) *Client {
	return &Client{
		BaseURL:          DefaultBaseURL,
		HTTP:             http.DefaultClient,
		Log:              log,
		filesByAccession: make(map[string][]RemoteFile),
		osdByGLDS:        make(map[string]string),
	}
}

// TableOfFiles lists an accession's files. GLDS accessions resolve to their
// OSD study first; OSD accessions query directly.
func (c *Client) TableOfFiles(accession string) ([]RemoteFile, error) {
	if cached, ok := c.filesByAccession[accession]; ok {
		return cached, nil
	}
	osd := accession
	if strings.HasPrefix(accession, "GLDS-") {
		resolved, err := c.ResolveOSD(accession)
		if err != nil {
			return nil, err
		}
		osd = resolved
	}
	files, err := c.fetchFiles(osd)
	if err != nil {
		return nil, err
	}
	c.filesByAccession[accession] = files
	return files, nil
}

// filesResponse mirrors the OSD files endpoint:
// {"studies": {"OSD-N": {"study_files": [{file_name, remote_url}, ...]}}}
type filesResponse struct {
	Studies map[string]struct {
		StudyFiles []RemoteFile `json:"study_files"`
	} `json:"studies"`
}

func (c *Client) fetchFiles(osd string) ([]RemoteFile, error) {
	number := strings.TrimPrefix(osd, "OSD-")
	endpoint := fmt.Sprintf("%s/osdr/data/osd/files/%s", c.BaseURL, number)
	var parsed filesResponse
	if err := c.getJSON(endpoint, &parsed); err != nil {
		return nil, err
	}
	study, ok := parsed.Studies[osd]
	if !ok {
		return nil, fmt.Errorf("files endpoint has no study %q", osd)
	}
	if c.Log != nil {
		c.Log.Info("fetched file listing",
			zap.String("accession", osd),
			zap.Int("files", len(study.StudyFiles)))
	}
	return study.StudyFiles, nil
}

// searchResponse mirrors the search API's hit envelope; Identifiers carries
// the aliases of a study, GLDS accessions included.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source struct {
				Identifiers string `json:"Identifiers"`
				Accession   string `json:"Accession"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ResolveOSD maps a GLDS accession to the OSD study listing it.
func (c *Client) ResolveOSD(glds string) (string, error) {
	if cached, ok := c.osdByGLDS[glds]; ok {
		return cached, nil
	}
	endpoint := fmt.Sprintf("%s/osdr/data/search?term=%s&type=cgene&size=50", c.BaseURL, url.QueryEscape(glds))
	var parsed searchResponse
	if err := c.getJSON(endpoint, &parsed); err != nil {
		return "", err
	}
	for _, hit := range parsed.Hits.Hits {
		if !strings.Contains(hit.Source.Identifiers, glds) {
			continue
		}
		osd := hit.Source.Accession
		if osd == "" {
			osd = hit.ID
		}
		if osd != "" {
			c.osdByGLDS[glds] = osd
			return osd, nil
		}
	}
	return "", fmt.Errorf("no OSD study lists %s among its identifiers", glds)
}

// RetrieveFileURL returns the download URL of a filename. Exactly one
// listing entry must match; zero or several mean the accession's file table
// cannot answer unambiguously.
func (c *Client) RetrieveFileURL(accession, filename string) (string, error) {
	files, err := c.TableOfFiles(accession)
	if err != nil {
		return "", err
	}
	var urls []string
	for _, f := range files {
		if f.FileName == filename {
			urls = append(urls, c.absoluteURL(f.RemoteURL))
		}
	}
	if len(urls) != 1 {
		return "", fmt.Errorf("accession %s lists %d files named %q, need exactly one", accession, len(urls), filename)
	}
	return urls[0], nil
}

// FindMatchingFilenames returns listed file names matching a regex.
func (c *Client) FindMatchingFilenames(accession, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	files, err := c.TableOfFiles(accession)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range files {
		if re.MatchString(f.FileName) {
			names = append(names, f.FileName)
		}
	}
	return names, nil
}

// DownloadISA fetches the accession's ISA archive into destDir and returns
// the local path. Exactly one listing entry may look like an ISA archive.
func (c *Client) DownloadISA(accession, destDir string) (string, error) {
	archives, err := c.FindMatchingFilenames(accession, isaArchivePattern)
	if err != nil {
		return "", err
	}
	if len(archives) != 1 {
		return "", fmt.Errorf("accession %s lists %d ISA archives, need exactly one", accession, len(archives))
	}
	fileURL, err := c.RetrieveFileURL(accession, archives[0])
	if err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, archives[0])
	if err := c.download(fileURL, dest); err != nil {
		return "", err
	}
	if c.Log != nil {
		c.Log.Info("downloaded ISA archive",
			zap.String("accession", accession),
			zap.String("path", dest))
	}
	return dest, nil
}

func (c *Client) absoluteURL(remote string) string {
	if strings.HasPrefix(remote, "http://") || strings.HasPrefix(remote, "https://") {
		return remote
	}
	return c.BaseURL + remote
}

func (c *Client) getJSON(endpoint string, into any) error {
	resp, err := c.HTTP.Get(endpoint)
	if err != nil {
		return err
	}
	defer simple_util.DeferClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", endpoint, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("parse response of %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) download(fileURL, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	resp, err := c.HTTP.Get(fileURL)
	if err != nil {
		return err
	}
	defer simple_util.DeferClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", fileURL, resp.Status)
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer simple_util.DeferClose(out)
	_, err = io.Copy(out, resp.Body)
	return err
}
