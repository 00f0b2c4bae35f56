package transport

import "strings"

var markdownReplacer = strings.NewReplacer(
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
	`\`, `\\`,
)

// EscapeMarkdown escapes text for use inside a MarkdownV2 message.
func EscapeMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}
