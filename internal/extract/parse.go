package extract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// ParseError reports a page body that could not be turned into a document.
type ParseError struct {
	ContentType string
	Err         error
}

func (e *ParseError) Error() string {
	if e.ContentType == "" {
		return "parse document: " + e.Err.Error()
	}
	return fmt.Sprintf("parse document (%s): %v", e.ContentType, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errEmptyDocument = errors.New("empty body")

// Parse decodes body according to the charset announced in contentType (or
// sniffed from the markup when absent) and builds a queryable document.
func Parse(body []byte, contentType string) (*goquery.Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ParseError{ContentType: contentType, Err: errEmptyDocument}
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, &ParseError{ContentType: contentType, Err: fmt.Errorf("decode charset: %w", err)}
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ParseError{ContentType: contentType, Err: err}
	}
	return doc, nil
}
