package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText collapses inner whitespace runs and trims the result,
// producing display text the way a browser would render it.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

var leadingDigits = regexp.MustCompile(`[\d,]+`)

// LeadingInt pulls the first digit run (commas allowed) out of free
// text, like the review count in "Based on 84 Critic Reviews".
// The second return is false when no digit run exists.
func LeadingInt(s string) (int, bool) {
	match := leadingDigits.FindString(s)
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", "")
	n := 0
	for _, c := range match {
		n = n*10 + int(c-'0')
	}
	return n, true
}
