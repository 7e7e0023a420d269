package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// signRequest stamps the date header and the master-key authorization token
// onto req. The signature covers the verb, resource type, resource link and
// the lowercased date, in that order, each newline-terminated.
func (c *Client) signRequest(req *http.Request, resourceType, resourceLink string) {
	date := strings.ToLower(time.Now().UTC().Format(http.TimeFormat))
	payload := strings.ToLower(req.Method) + "\n" +
		resourceType + "\n" +
		resourceLink + "\n" +
		date + "\n" +
		"\n"

	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(payload))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set(headerDate, date)
	req.Header.Set("Authorization", url.QueryEscape("type=master&ver=1.0&sig="+sig))
}

// decodeKey validates and decodes the base64 master key.
func decodeKey(key string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid base64: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("master key is empty")
	}
	return raw, nil
}
