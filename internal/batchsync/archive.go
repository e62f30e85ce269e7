package batchsync

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// OperationResult is one entry of the provider's per-operation result file.
// Only these fields are read; anything else in the entry is ignored.
type OperationResult struct {
	OperationID string `json:"operation_id"`
	StatusCode  int    `json:"status_code"`
	Response    string `json:"response"`
}

// Failed reports a non-2xx result
func (r OperationResult) Failed() bool {
	return r.StatusCode < 200 || r.StatusCode > 299
}

// ReadResultArchive decodes a gzipped tar of JSON result files.
// Results from every .json entry are concatenated in archive order.
func ReadResultArchive(data []byte) ([]OperationResult, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ArchiveFormatError{Reason: "not a gzip stream", Err: err}
	}
	defer zr.Close()

	var (
		results []OperationResult
		found   bool
	)

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ArchiveFormatError{Reason: "corrupt tar stream", Err: err}
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(strings.ToLower(hdr.Name), ".json") {
			continue
		}

		var entries []OperationResult
		if err := json.NewDecoder(tr).Decode(&entries); err != nil {
			return nil, &ArchiveFormatError{Reason: "invalid JSON in " + hdr.Name, Err: err}
		}
		results = append(results, entries...)
		found = true
	}

	if !found {
		return nil, &ArchiveFormatError{Reason: "no JSON results entry"}
	}
	return results, nil
}
