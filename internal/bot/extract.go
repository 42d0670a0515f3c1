package bot

// extractJSONObjects scans free text for balanced top-level brace segments.
// The scanner tracks string-literal and escape state so braces inside string
// values (code snippets, for example) do not unbalance the match. Segments
// that never close are discarded.
func extractJSONObjects(text string) []string {
	var (
		segments []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)

	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					segments = append(segments, text[start:i+1])
				}
			}
		}
	}

	return segments
}
