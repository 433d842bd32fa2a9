package model

import (
	"errors"
	"strings"
)

// ErrNoCredential is returned by InitializeSession when no API key is
// configured. Initialization cannot be retried until one is provided.
var ErrNoCredential = errors.New("no API key configured")

// ErrNoSession is returned by operations that require an initialized
// session.
var ErrNoSession = errors.New("session not initialized")

// networkErrorMarkers are substrings that classify a transport failure as
// transient. Matching failures are retried; everything else surfaces
// immediately.
var networkErrorMarkers = []string{
	"fetch failed",
	"timeout",
	"network",
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range networkErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
