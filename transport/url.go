package transport

import (
	"errors"
	"fmt"
	"net/url"
)

var supportedAPIVersions = []string{
	"8", "9", "10",
}
var supportedAPICodecs = []string{
	"json",
}

var ErrURLScheme = errors.New("url scheme was not websocket (ws nor wss)")
var ErrUnsupportedAPIVersion = fmt.Errorf("only discord api version %+v is supported", supportedAPIVersions)
var ErrUnsupportedAPICodec = fmt.Errorf("only %+v is supported", supportedAPICodecs)
var ErrIncompleteDialURL = errors.New("incomplete url is missing one or many of: 'version', 'encoding', 'scheme'")

// ValidateDialURL makes sure the gateway url is complete, and specifies a supported
// api version and encoding:
//
//	"wss://gateway.discord.gg/"                     => invalid
//	"wss://gateway.discord.gg/?v=10"                => invalid
//	"wss://gateway.discord.gg/?v=10&encoding=json"  => valid
func ValidateDialURL(URLString string) (string, error) {
	in := func(keyword string, slice []string) bool {
		for i := range slice {
			if keyword == slice[i] {
				return true
			}
		}
		return false
	}

	u, err := url.Parse(URLString)
	if err != nil {
		return "", err
	}

	v := u.Query().Get("v")
	encoding := u.Query().Get("encoding")
	if v == "" || encoding == "" || u.Scheme == "" {
		return "", ErrIncompleteDialURL
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", ErrURLScheme
	}
	if !in(v, supportedAPIVersions) {
		return "", ErrUnsupportedAPIVersion
	}
	if !in(encoding, supportedAPICodecs) {
		return "", ErrUnsupportedAPICodec
	}

	return u.String(), nil
}

// GatewayURL turns a bare gateway address, such as the resume url from a ready event,
// into a dial url with version and encoding set. Existing query values are kept.
func GatewayURL(address string, version string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", err
	}

	query := u.Query()
	if query.Get("v") == "" {
		query.Set("v", version)
	}
	if query.Get("encoding") == "" {
		query.Set("encoding", "json")
	}
	u.RawQuery = query.Encode()
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
