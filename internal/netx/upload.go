// Package netx holds raw HTTP helpers that sit outside the API client.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/fieldsync/internal/common"
)

// UploadPresigned PUTs data to a pre-authorized upload URL. The URL carries
// its own authorization, so no token is attached.
func UploadPresigned(ctx context.Context, url string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", common.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("upload failed with %s: %w", resp.Status, common.ErrServerRejected)
	}
	return nil
}
