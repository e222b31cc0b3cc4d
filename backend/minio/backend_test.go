package minio

import (
	"errors"
	"net/http"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/client"
	vfserrors "github.com/mwantia/s3vfs/data/errors"
)

func TestResponseError(t *testing.T) {
	err := responseError("HeadBucket", miniogo.ErrorResponse{
		StatusCode: http.StatusMovedPermanently,
		Code:       "PermanentRedirect",
		Message:    "moved",
		Region:     "eu-central-1",
	})

	if backend.StatusCode(err) != http.StatusMovedPermanently {
		t.Errorf("expected 301, got %v", err)
	}
	if backend.ResponseHeader(err).Get(backend.RegionHeader) != "eu-central-1" {
		t.Error("expected region of the error response as header")
	}

	plain := errors.New("dial tcp: connection refused")
	if responseError("HeadObject", plain) != plain {
		t.Error("errors without response must be returned unchanged")
	}
}

func TestETagQuoting(t *testing.T) {
	if quoteETag("abc") != `"abc"` || quoteETag(`"abc"`) != `"abc"` || quoteETag("") != "" {
		t.Error("unexpected quoting")
	}
	if unquoteETag(`"abc"`) != "abc" || unquoteETag("*") != "*" {
		t.Error("unexpected unquoting")
	}
}

func TestChecksumType(t *testing.T) {
	tests := map[backend.ChecksumAlgorithm]miniogo.ChecksumType{
		backend.ChecksumCRC32:     miniogo.ChecksumCRC32,
		backend.ChecksumCRC32C:    miniogo.ChecksumCRC32C,
		backend.ChecksumCRC64NVME: miniogo.ChecksumCRC64NVME,
		backend.ChecksumSHA1:      miniogo.ChecksumSHA1,
		backend.ChecksumSHA256:    miniogo.ChecksumSHA256,
		"unknown":                 miniogo.ChecksumNone,
	}

	for alg, expected := range tests {
		if got := checksumType(alg); got != expected {
			t.Errorf("%s: expected %v, got %v", alg, expected, got)
		}
	}
}

func TestFactory_Lifecycle(t *testing.T) {
	ctx := t.Context()

	b, err := Factory{}.Endpoint(ctx, client.Endpoint{
		Host:      "localhost:9000",
		Protocol:  "http",
		Region:    "local",
		PathStyle: true,
		AccessKey: "access",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("Endpoint failed: %v", err)
	}

	if b.Name() != "minio" || b.IsClosed() {
		t.Fatalf("unexpected backend state")
	}

	b.Close(ctx)
	if _, err := b.HeadObject(ctx, "bucket", "key"); !errors.Is(err, vfserrors.ErrClientClosed) {
		t.Errorf("expected ErrClientClosed, got %v", err)
	}

	b.Open(ctx)
	if b.IsClosed() {
		t.Error("expected reopened backend")
	}
}
