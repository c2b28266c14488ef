package main

import (
	"crypto/rand"
	"net/http"

	"github.com/halvardh/streamview/internal/statsserver"
)

// randomJWTSecret generates a fresh signing secret for this process's stats
// server. The secret never needs to be shared or persisted: operators
// authenticate with the plaintext bearer token, and only JWTs minted by
// this process's Server.MintToken would verify against it.
func randomJWTSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("streamview: reading random bytes: " + err.Error())
	}
	return buf
}

func httpListenAndServe(addr string, srv *statsserver.Server) error {
	return http.ListenAndServe(addr, srv.Router())
}
