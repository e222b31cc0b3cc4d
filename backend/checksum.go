package backend

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/minio/crc64nvme"
)

// ChecksumAlgorithm names an integrity checksum accepted by the object store.
type ChecksumAlgorithm string

const (
	ChecksumCRC32     ChecksumAlgorithm = "CRC32"
	ChecksumCRC32C    ChecksumAlgorithm = "CRC32C"
	ChecksumCRC64NVME ChecksumAlgorithm = "CRC64NVME"
	ChecksumSHA1      ChecksumAlgorithm = "SHA1"
	ChecksumSHA256    ChecksumAlgorithm = "SHA256"
)

// Checksum is a base64 encoded digest attached to an upload.
type Checksum struct {
	Algorithm ChecksumAlgorithm
	Value     string
}

func ParseChecksumAlgorithm(name string) (ChecksumAlgorithm, error) {
	alg := ChecksumAlgorithm(strings.ToUpper(strings.TrimSpace(name)))
	switch alg {
	case ChecksumCRC32, ChecksumCRC32C, ChecksumCRC64NVME, ChecksumSHA1, ChecksumSHA256:
		return alg, nil
	}
	return "", fmt.Errorf("unknown checksum algorithm '%s'", name)
}

// New returns a fresh hash for the algorithm.
func (a ChecksumAlgorithm) New() (hash.Hash, error) {
	switch a {
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumCRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli)), nil
	case ChecksumCRC64NVME:
		return crc64nvme.New(), nil
	case ChecksumSHA1:
		return sha1.New(), nil
	case ChecksumSHA256:
		return sha256.New(), nil
	}
	return nil, fmt.Errorf("unknown checksum algorithm '%s'", a)
}

// ComputeChecksum reads r to the end and returns its digest.
func ComputeChecksum(alg ChecksumAlgorithm, r io.Reader) (*Checksum, error) {
	h, err := alg.New()
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(h, r); err != nil {
		return nil, err
	}

	return &Checksum{
		Algorithm: alg,
		Value:     base64.StdEncoding.EncodeToString(h.Sum(nil)),
	}, nil
}
