package githubclient

import "strings"

// linkHasNext reports whether an RFC 5988 Link header advertises a rel="next"
// target. The absence of the link terminates paging regardless of what the
// result counts suggest.
func linkHasNext(header string) bool {
	if header == "" {
		return false
	}
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			p := strings.TrimSpace(param)
			if p == `rel="next"` || p == "rel=next" {
				return true
			}
		}
	}
	return false
}
