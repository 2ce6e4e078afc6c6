package zia

import (
	"errors"
	"strconv"
	"strings"
)

// MinAPIKeyLen is the shortest API key the obfuscation transform can index.
// Digits of the shifted timestamp select seed positions up to 9+2.
const MinAPIKeyLen = 12

var (
	// ErrAPIKeyTooShort indicates the configured API key cannot be obfuscated.
	ErrAPIKeyTooShort = errors.New("zia: api key shorter than 12 characters")

	// ErrBadTimestamp indicates the supplied epoch timestamp has fewer than
	// six decimal digits and the transform is undefined for it.
	ErrBadTimestamp = errors.New("zia: timestamp has fewer than 6 digits")
)

// ObfuscateAPIKey derives the time-keyed sign-in token the admin API expects
// in place of the raw API key. The transform takes the last six digits of the
// millisecond timestamp, halves them with an arithmetic shift, and uses both
// digit strings to index into the key.
//
// The result embeds the timestamp, so it must be recomputed for every sign-in
// attempt; the service rejects stale timestamps.
func ObfuscateAPIKey(apiKey string, nowMillis int64) (string, error) {
	if len(apiKey) < MinAPIKeyLen {
		return "", ErrAPIKeyTooShort
	}
	if nowMillis < 100000 {
		return "", ErrBadTimestamp
	}

	ts := strconv.FormatInt(nowMillis, 10)
	n := ts[len(ts)-6:]

	nVal, err := strconv.ParseInt(n, 10, 64)
	if err != nil {
		return "", ErrBadTimestamp
	}
	r := strconv.FormatInt(nVal>>1, 10)
	for len(r) < 6 {
		r = "0" + r
	}

	var key strings.Builder
	key.Grow(len(n) + len(r))
	for i := 0; i < len(n); i++ {
		key.WriteByte(apiKey[n[i]-'0'])
	}
	for i := 0; i < len(r); i++ {
		key.WriteByte(apiKey[r[i]-'0'+2])
	}

	return key.String(), nil
}
