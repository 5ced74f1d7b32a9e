package api

import (
	"errors"
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

// ErrMalicious 上传文件未通过病毒扫描。
var ErrMalicious = errors.New("malicious file detected")

// Scanner 扫描上传内容，发现威胁时返回 ErrMalicious。
type Scanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner 通过 clamd INSTREAM 扫描。
type ClamdScanner struct {
	addr string
}

// NewClamdScanner 创建扫描器，addr 形如 tcp://clamav:3310。
func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{addr: addr}
}

// Scan 实现 Scanner。
func (s *ClamdScanner) Scan(r io.Reader) error {
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamd.NewClamd(s.addr).ScanStream(r, abortChan)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}

	var found error
	for result := range scanChan {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			found = fmt.Errorf("%w: %s", ErrMalicious, result.Description)
		default:
			if found == nil {
				found = fmt.Errorf("scan failed: %s %s", result.Status, result.Description)
			}
		}
	}
	return found
}
