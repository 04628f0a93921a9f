package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/url"
	"strconv"
	"time"
)

// HashMethod is the only signature algorithm the API accepts.
const HashMethod = "sha256"

// SignedQuery returns the query string authenticating a download of
// resourceID: timestamp, hash and hash_method, in that order. The timestamp
// is the Unix time rounded up to whole seconds with one decimal place.
func SignedQuery(apiKey, resourceID string, now time.Time) string {
	ts := Timestamp(now)
	sum := sha256.Sum256([]byte(apiKey + resourceID + ts))

	return "timestamp=" + url.QueryEscape(ts) +
		"&hash=" + hex.EncodeToString(sum[:]) +
		"&hash_method=" + HashMethod
}

// Timestamp formats now as used by SignedQuery, e.g. "1700000000.0".
func Timestamp(now time.Time) string {
	secs := math.Ceil(float64(now.UnixMilli()) / 1000)
	return strconv.FormatFloat(secs, 'f', 1, 64)
}
