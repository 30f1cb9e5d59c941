// Package inbox turns files dropped into a directory into raw documents:
// RFC 5322 messages (.eml), plain text (.txt) and RawDocument JSON (.json).
package inbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// MaxFileSize is the largest inbox file read.
const MaxFileSize = 10 << 20

// Supported file extensions.
const (
	ExtEmail = ".eml"
	ExtText  = ".txt"
	ExtJSON  = ".json"
)

// Supported reports whether path has an inbox file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtEmail, ExtText, ExtJSON:
		return true
	}
	return false
}

// ReadFile reads one inbox file into a RawDocument.
//
// Messages keep their headers in RawText for the normalizer; the source id is
// the Message-ID when present. Text files are treated as crawled pages.
// Source ids otherwise default to the file name without its extension.
func ReadFile(path string) (deal.RawDocument, error) {
	if !Supported(path) {
		return deal.RawDocument{}, errors.NewInvalidRequest(fmt.Sprintf("unsupported inbox file %q (want .eml, .txt or .json)", filepath.Base(path)))
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return deal.RawDocument{}, errors.NewNotFound("file", path)
		}
		return deal.RawDocument{}, errors.NewInternal(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return deal.RawDocument{}, errors.NewInternal(err)
	}
	if info.IsDir() {
		return deal.RawDocument{}, errors.NewInvalidRequest(fmt.Sprintf("%s is a directory", path))
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return deal.RawDocument{}, errors.NewInternal(err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(data) > MaxFileSize {
		return deal.RawDocument{}, errors.NewInvalidInput(base, "raw_text", fmt.Sprintf("file exceeds %d bytes", MaxFileSize))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ExtEmail:
		return parseEmail(base, data, info.ModTime()), nil
	case ExtJSON:
		return parseJSON(base, data, info.ModTime())
	default:
		return deal.RawDocument{
			SourceID:   base,
			Origin:     deal.OriginCrawl,
			RawText:    string(data),
			ReceivedAt: info.ModTime().UTC(),
		}, nil
	}
}

// parseEmail reads the headers it needs and keeps the full message as text.
// A message whose headers cannot be parsed is still ingested; the normalizer
// falls back to the raw text.
func parseEmail(base string, data []byte, modTime time.Time) deal.RawDocument {
	doc := deal.RawDocument{
		SourceID:   base,
		Origin:     deal.OriginEmail,
		RawText:    string(data),
		ReceivedAt: modTime.UTC(),
	}

	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return doc
	}
	if id := strings.Trim(strings.TrimSpace(msg.Header.Get("Message-Id")), "<>"); id != "" {
		doc.SourceID = id
	}
	if date, err := msg.Header.Date(); err == nil {
		doc.ReceivedAt = date.UTC()
	}
	if addr, err := mail.ParseAddress(msg.Header.Get("From")); err == nil {
		doc.SenderAddress = &addr.Address
	}
	return doc
}

func parseJSON(base string, data []byte, modTime time.Time) (deal.RawDocument, error) {
	var doc deal.RawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return deal.RawDocument{}, errors.NewInvalidInput(base, "json", fmt.Sprintf("invalid document JSON: %v", err))
	}
	if strings.TrimSpace(doc.SourceID) == "" {
		doc.SourceID = base
	}
	if doc.Origin == "" {
		doc.Origin = deal.OriginFeed
	}
	if !doc.Origin.Valid() {
		return deal.RawDocument{}, errors.NewInvalidInput(doc.SourceID, "origin", fmt.Sprintf("unknown origin %q", doc.Origin))
	}
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = modTime.UTC()
	}
	return doc, nil
}

// FileError is a file ReadDir could not read.
type FileError struct {
	Path  string            `json:"path"`
	Error *errors.DealError `json:"error"`
}

// ReadDir reads every supported file directly in dir, in name order. Hidden
// files and subdirectories are skipped. Unreadable files are reported in the
// second return value and do not stop the scan.
func ReadDir(dir string) ([]deal.RawDocument, []FileError, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NewNotFound("directory", dir)
		}
		return nil, nil, errors.NewInternal(err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		docs   []deal.RawDocument
		failed []FileError
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !Supported(name) {
			continue
		}
		path := filepath.Join(dir, name)
		doc, err := ReadFile(path)
		if err != nil {
			failed = append(failed, FileError{Path: path, Error: errors.As(err)})
			continue
		}
		docs = append(docs, doc)
	}
	return docs, failed, nil
}
