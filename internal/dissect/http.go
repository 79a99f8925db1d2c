package dissect

import (
	"bytes"
	"strconv"
	"strings"
)

var httpMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"CONNECT": true, "OPTIONS": true, "TRACE": true, "PATCH": true,
}

const crlf = "\r\n"

// HTTP is a best-effort text parser recognizing request lines
// (`METHOD SP target SP HTTP/x.y CRLF`) or status lines
// (`HTTP/x.y SP code SP reason CRLF`), followed by header lines until an
// empty CRLF. The body is not parsed beyond Content-Length reporting.
// Terminal layer.
var HTTP = Dissector{
	Name:  "HTTP",
	Proto: TagHTTP,
	Parse: parseHTTP,
}

func parseHTTP(data []byte, _ *Context) (Result, error) {
	end := bytes.Index(data, []byte(crlf))
	if end == -1 {
		return Result{}, errTruncated(TagHTTP, "no CRLF-terminated start line")
	}

	startLine := string(data[:end])
	fields := Fields{}

	if _, err := parseHTTPStartLine(startLine, fields); err != nil {
		return Result{}, err
	}

	offset := end + 2

	headers := map[string]string{}

	for {
		lineEnd := bytes.Index(data[offset:], []byte(crlf))
		if lineEnd == -1 {
			return Result{
				Record: LayerRecord{
					Proto:       TagHTTP,
					StartOffset: 0,
					EndOffset:   len(data),
					Partial:     true,
					Fields:      mergeHTTPFields(fields, headers),
				},
			}, errTruncated(TagHTTP, "header section not terminated")
		}

		if lineEnd == 0 {
			offset += 2

			break
		}

		line := string(data[offset : offset+lineEnd])

		colon := strings.IndexByte(line, ':')
		if colon == -1 {
			return Result{}, errMalformed(TagHTTP, "header line missing colon")
		}

		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		headers[name] = value

		offset += lineEnd + 2
	}

	fields = mergeHTTPFields(fields, headers)

	if cl, ok := headers["Content-Length"]; ok {
		if n, convErr := strconv.Atoi(cl); convErr == nil {
			fields["content_length"] = n
		}
	}

	return Result{
		Record: LayerRecord{
			Proto:       TagHTTP,
			StartOffset: 0,
			EndOffset:   offset,
			Fields:      fields,
		},
	}, nil
}

func mergeHTTPFields(start Fields, headers map[string]string) Fields {
	if len(headers) > 0 {
		start["headers"] = headers
	}

	return start
}

func parseHTTPStartLine(line string, fields Fields) (isRequest bool, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return false, errMalformed(TagHTTP, "start line does not have three space-separated fields")
	}

	if httpMethods[parts[0]] {
		fields["method"] = parts[0]
		fields["target"] = parts[1]
		fields["version"] = parts[2]

		if !strings.HasPrefix(parts[2], "HTTP/") {
			return false, errMalformed(TagHTTP, "request line missing HTTP version token")
		}

		return true, nil
	}

	if strings.HasPrefix(parts[0], "HTTP/") {
		code, convErr := strconv.Atoi(parts[1])
		if convErr != nil {
			return false, errMalformed(TagHTTP, "status line code is not numeric")
		}

		fields["version"] = parts[0]
		fields["status_code"] = code
		fields["reason"] = parts[2]

		return false, nil
	}

	return false, errMalformed(TagHTTP, "start line is neither a request nor a status line")
}
