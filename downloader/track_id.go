package downloader

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	base62IDLength = 22
	hexIDLength    = 32
)

var big62 = big.NewInt(62)

// TrackID is a 128-bit catalog identifier
type TrackID struct {
	gid [16]byte
}

// TrackIDFromBase62 parses the 22 character form used in URLs and URIs
func TrackIDFromBase62(s string) (TrackID, error) {
	var id TrackID
	gid, err := decodeBase62(s)
	if err != nil {
		return id, err
	}
	id.gid = gid
	return id, nil
}

// TrackIDFromHex parses the 32 character hex gid used by album listings
func TrackIDFromHex(s string) (TrackID, error) {
	var id TrackID
	if len(s) != hexIDLength {
		return id, NewDownloadError(ErrorInvalidLocator, fmt.Sprintf("hex id must be %d characters, got %d", hexIDLength, len(s))).
			WithContext("id", s)
	}
	if _, err := hex.Decode(id.gid[:], []byte(s)); err != nil {
		return id, NewDownloadErrorWithCause(ErrorInvalidLocator, "malformed hex id", err).WithContext("id", s)
	}
	return id, nil
}

// TrackIDFromURI extracts the id after the last ':' of a catalog URI
func TrackIDFromURI(uri string) (TrackID, error) {
	return TrackIDFromBase62(uri[strings.LastIndex(uri, ":")+1:])
}

// Hex returns the lower-case hex gid
func (id TrackID) Hex() string {
	return hex.EncodeToString(id.gid[:])
}

// Base62 returns the 22 character base62 form
func (id TrackID) Base62() string {
	n := new(big.Int).SetBytes(id.gid[:])
	out := make([]byte, base62IDLength)
	mod := new(big.Int)
	for i := base62IDLength - 1; i >= 0; i-- {
		n.DivMod(n, big62, mod)
		out[i] = base62Alphabet[mod.Int64()]
	}
	return string(out)
}

func (id TrackID) String() string {
	return id.Base62()
}

// MarshalText encodes the id in base62
func (id TrackID) MarshalText() ([]byte, error) {
	return []byte(id.Base62()), nil
}

// UnmarshalText decodes a base62 id
func (id *TrackID) UnmarshalText(text []byte) error {
	parsed, err := TrackIDFromBase62(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func decodeBase62(s string) ([16]byte, error) {
	var gid [16]byte
	if len(s) != base62IDLength {
		return gid, NewDownloadError(ErrorInvalidLocator, fmt.Sprintf("base62 id must be %d characters, got %d", base62IDLength, len(s))).
			WithContext("id", s)
	}

	n := new(big.Int)
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(base62Alphabet, s[i])
		if digit < 0 {
			return gid, NewDownloadError(ErrorInvalidLocator, fmt.Sprintf("invalid base62 character %q", s[i])).
				WithContext("id", s)
		}
		n.Mul(n, big62)
		n.Add(n, big.NewInt(int64(digit)))
	}

	if n.BitLen() > 128 {
		return gid, NewDownloadError(ErrorInvalidLocator, "base62 id overflows 128 bits").WithContext("id", s)
	}
	n.FillBytes(gid[:])
	return gid, nil
}

// ValidateBase62ID checks the shape of a track or album id
func ValidateBase62ID(s string) error {
	_, err := decodeBase62(s)
	return err
}
