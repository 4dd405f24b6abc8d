package server

import (
	"os"
	"testing"

	"pai-smart-go/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}
