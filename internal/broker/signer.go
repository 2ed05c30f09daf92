package broker

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const authVersion = "1.0"

// Credentials identify an application on the broker.
type Credentials struct {
	AppID  string
	Key    string
	Secret string
}

// SignedQuery returns the query string of a signed broker REST request using
// the Pusher auth_version 1.0 scheme.
func SignedQuery(creds Credentials, method, path string, body []byte, extra url.Values, now time.Time) string {
	params := map[string]string{
		"auth_key":       creds.Key,
		"auth_timestamp": strconv.FormatInt(now.Unix(), 10),
		"auth_version":   authVersion,
	}
	if len(body) > 0 {
		sum := md5.Sum(body)
		params["body_md5"] = hex.EncodeToString(sum[:])
	}
	for k, v := range extra {
		if len(v) > 0 {
			params[strings.ToLower(k)] = v[0]
		}
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	query := strings.Join(pairs, "&")

	toSign := strings.ToUpper(method) + "\n" + path + "\n" + query
	return query + "&auth_signature=" + Sign(creds.Secret, toSign)
}

// Sign returns the hex HMAC-SHA256 of payload.
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
