package cache

import (
	"strings"
)

const keySep = ":"

var keyEscaper = strings.NewReplacer("%", "%25", keySep, "%3A")

// MakeKey собирает ключ кеша из endpoint и нормализованных параметров.
// Значения экранируются, так что ":" внутри значения не склеивает поля.
//
//	MakeKey("anime", "naruto", "1", "20") == "anime:naruto:1:20"
func MakeKey(endpoint string, params ...string) string {
	var sb strings.Builder
	sb.WriteString(keyEscaper.Replace(endpoint))
	for _, p := range params {
		sb.WriteString(keySep)
		sb.WriteString(keyEscaper.Replace(p))
	}
	return sb.String()
}
