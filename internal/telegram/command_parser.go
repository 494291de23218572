package telegram

import (
	"strconv"
	"strings"
)

// Command - разобранное сообщение. Name пустой у обычного текста.
type Command struct {
	Name string
	Args string
}

// ParseCommand: "/page@anime_bot 3" -> {page, "3"}, "/anime_20" -> {anime, "20"},
// обычный текст -> {"", текст}
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "/") {
		return Command{Args: normalizeSpaces(text)}
	}

	parts := strings.SplitN(text, " ", 2)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	var rest string
	if len(parts) > 1 {
		rest = normalizeSpaces(parts[1])
	}

	// кликабельная форма "/anime_20"
	if base, id, ok := strings.Cut(name, "_"); ok && rest == "" && isDigits(id) {
		return Command{Name: base, Args: id}
	}

	return Command{Name: name, Args: rest}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IntArg - первый аргумент как число
func (c Command) IntArg() (int, bool) {
	fields := strings.Fields(c.Args)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

const pageCallbackPrefix = "page:"

func pageCallbackData(page int) string {
	return pageCallbackPrefix + strconv.Itoa(page)
}

// ParsePageCallback разбирает callback data кнопок пагинации
func ParsePageCallback(data string) (int, bool) {
	raw, ok := strings.CutPrefix(data, pageCallbackPrefix)
	if !ok {
		return 0, false
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
