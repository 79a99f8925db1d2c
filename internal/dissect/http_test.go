package dissect

import "testing"

func TestParseHTTP_RequestLineWithHeaders(t *testing.T) {
	data := []byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\nContent-Length: 13\r\n\r\n")

	result, err := parseHTTP(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Record.Fields["method"] != "GET" {
		t.Errorf("method = %v, want GET", result.Record.Fields["method"])
	}

	if result.Record.Fields["target"] != "/index.html" {
		t.Errorf("target = %v, want /index.html", result.Record.Fields["target"])
	}

	headers, ok := result.Record.Fields["headers"].(map[string]string)
	if !ok || headers["Host"] != "example.com" {
		t.Fatalf("headers = %#v, want Host: example.com", result.Record.Fields["headers"])
	}

	if result.Record.Fields["content_length"] != 13 {
		t.Errorf("content_length = %v, want 13", result.Record.Fields["content_length"])
	}

	if result.Record.EndOffset != len(data) {
		t.Errorf("EndOffset = %d, want %d", result.Record.EndOffset, len(data))
	}
}

func TestParseHTTP_StatusLine(t *testing.T) {
	data := []byte("HTTP/1.1 404 Not Found\r\nServer: nginx\r\n\r\n")

	result, err := parseHTTP(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Record.Fields["status_code"] != 404 {
		t.Errorf("status_code = %v, want 404", result.Record.Fields["status_code"])
	}

	if result.Record.Fields["reason"] != "Not Found" {
		t.Errorf("reason = %v, want Not Found", result.Record.Fields["reason"])
	}
}

func TestParseHTTP_RejectsHeaderLineMissingColon(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\nbroken-header-line\r\n\r\n")

	_, err := parseHTTP(data, nil)

	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != MalformedField {
		t.Fatalf("expected MalformedField ParseError, got %#v", err)
	}
}

func TestParseHTTP_RejectsMissingCRLFInStartLine(t *testing.T) {
	data := []byte("GET / HTTP/1.1 no crlf here")

	_, err := parseHTTP(data, nil)

	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != Truncated {
		t.Fatalf("expected Truncated ParseError, got %#v", err)
	}
}
