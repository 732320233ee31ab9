package render

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

var fence = []byte("---")

// splitFrontmatter separates a leading "---" YAML block from the body.
// Content without a block yields empty metadata.
func splitFrontmatter(content []byte) (map[string]any, []byte, error) {
	meta := make(map[string]any)
	if !bytes.HasPrefix(content, fence) {
		return meta, content, nil
	}

	rest := bytes.TrimLeft(content[len(fence):], "\r\n")
	end := bytes.Index(rest, fence)
	if end == -1 {
		return nil, nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	if block := bytes.TrimSpace(rest[:end]); len(block) > 0 {
		if err := yaml.Unmarshal(block, &meta); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}

	body := rest[end+len(fence):]
	body = bytes.TrimPrefix(body, []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))
	return meta, body, nil
}
