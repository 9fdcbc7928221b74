package foundry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DatasetVersion is a registered, versioned dataset
type DatasetVersion struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Version        string `json:"version"`
	Type           string `json:"type"`
	DataURI        string `json:"dataUri"`
	ConnectionName string `json:"connectionName,omitempty"`
}

func (d *DatasetVersion) String() string {
	return fmt.Sprintf("DatasetVersion{name: %s, version: %s, type: %s, dataUri: %s, id: %s}",
		d.Name, d.Version, d.Type, d.DataURI, d.ID)
}

// pendingUploadRequest is the body of startPendingUpload
type pendingUploadRequest struct {
	PendingUploadType string `json:"pendingUploadType"`
	ConnectionName    string `json:"connectionName,omitempty"`
}

// pendingUploadResponse tells where the dataset's bytes must be written
type pendingUploadResponse struct {
	PendingUploadID string `json:"pendingUploadId"`
	BlobReference   struct {
		BlobURI    string `json:"blobUri"`
		Credential struct {
			SASURI string `json:"sasUri"`
			Type   string `json:"type"`
		} `json:"credential"`
	} `json:"blobReference"`
}

// UploadFile registers the file at filePath as dataset name/version stored
// through connectionName. The file is read whole.
func (c *Client) UploadFile(ctx context.Context, name, version, filePath, connectionName string) (*DatasetVersion, error) {
	if name == "" || version == "" {
		return nil, errors.New("dataset name and version are required")
	}
	if connectionName == "" {
		return nil, errors.New("connection name is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset file: %w", err)
	}
	blobName := filepath.Base(filePath)

	// 1. Ask the service for a writable blob container
	req, err := c.newRequest(ctx, ProjectScope)
	if err != nil {
		return nil, err
	}
	req.SetQueryParam("api-version", DatasetsAPIVersion).
		SetBody(pendingUploadRequest{PendingUploadType: "BlobReference", ConnectionName: connectionName})

	var pending pendingUploadResponse
	if err := c.do(req, http.MethodPost, c.projectURL("datasets", name, "versions", version, "startPendingUpload"), &pending); err != nil {
		return nil, fmt.Errorf("starting pending upload: %w", err)
	}
	if pending.BlobReference.Credential.SASURI == "" {
		return nil, errors.New("starting pending upload: service returned no SAS URI")
	}

	// 2. Write the file into the container
	blobURL, err := blobURLFromSAS(pending.BlobReference.Credential.SASURI, blobName)
	if err != nil {
		return nil, err
	}
	if c.isClosed() {
		return nil, ErrClosed
	}
	upload := c.http.R().
		SetContext(ctx).
		SetHeader("x-ms-blob-type", "BlockBlob").
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data)
	if err := c.do(upload, http.MethodPut, blobURL, nil); err != nil {
		return nil, fmt.Errorf("uploading blob: %w", err)
	}

	// 3. Register the dataset version pointing at the blob
	containerURI := pending.BlobReference.BlobURI
	if containerURI == "" {
		containerURI = stripQuery(pending.BlobReference.Credential.SASURI)
	}
	req, err = c.newRequest(ctx, ProjectScope)
	if err != nil {
		return nil, err
	}
	req.SetQueryParam("api-version", DatasetsAPIVersion).
		SetHeader("Content-Type", "application/merge-patch+json").
		SetBody(map[string]string{
			"type":    "uri_file",
			"dataUri": strings.TrimRight(containerURI, "/") + "/" + blobName,
		})

	var dataset DatasetVersion
	if err := c.do(req, http.MethodPatch, c.projectURL("datasets", name, "versions", version), &dataset); err != nil {
		return nil, fmt.Errorf("creating dataset version: %w", err)
	}
	return &dataset, nil
}

// blobURLFromSAS appends blobName to the container path of a SAS URI,
// keeping its query string.
func blobURLFromSAS(sasURI, blobName string) (string, error) {
	u, err := url.Parse(sasURI)
	if err != nil {
		return "", fmt.Errorf("invalid SAS URI: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + blobName
	return u.String(), nil
}

func stripQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
