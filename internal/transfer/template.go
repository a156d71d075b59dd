package transfer

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/onscale/onscale-go/internal/models"
)

// Placeholder tokens the portal embeds in presigned upload requests.
const (
	tokenFileName        = "#fileName#"
	tokenEncodedFileName = "#urlEncodedFileName#"
	tokenFileSize        = "#fileSize#"
)

// resolveUploadRequest substitutes the per-file placeholder tokens into a
// presigned upload request, returning a concrete request for one file.
func resolveUploadRequest(req *models.HTTPRequest, fileName string, fileSize int64) *models.HTTPRequest {
	mapping := [][2]string{
		{tokenEncodedFileName, url.QueryEscape(fileName)},
		{tokenFileName, fileName},
		{tokenFileSize, strconv.FormatInt(fileSize, 10)},
	}

	apply := func(s string) string {
		for _, kv := range mapping {
			s = strings.ReplaceAll(s, kv[0], kv[1])
		}
		return s
	}
	applyMap := func(in map[string]string) map[string]string {
		if len(in) == 0 {
			return nil
		}
		out := make(map[string]string, len(in))
		for k, v := range in {
			out[k] = apply(v)
		}
		return out
	}

	return &models.HTTPRequest{
		Method:     req.Method,
		URI:        apply(req.URI),
		Headers:    applyMap(req.Headers),
		FormFields: applyMap(req.FormFields),
	}
}
