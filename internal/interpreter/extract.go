package interpreter

import (
    "regexp"
    "strings"
)

var (
    goFence  = regexp.MustCompile("(?s)```(?:go|golang)[ \t]*\r?\n(.*?)```")
    anyFence = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n(.*?)```")
    pkgLine  = regexp.MustCompile(`(?m)^\s*package\s+\w+`)
    funcLine = regexp.MustCompile(`(?m)^\s*func\s`)
)

// ExtractSource pulls the program out of a model reply. The first ```go block
// wins, then any fenced block, then the whole reply if it looks like Go. A
// missing package clause is filled in with package main. Prose yields "".
func ExtractSource(reply string) string {
    src := strings.TrimSpace(reply)
    if m := goFence.FindStringSubmatch(reply); m != nil {
        src = m[1]
    } else if m := anyFence.FindStringSubmatch(reply); m != nil {
        src = m[1]
    } else if !pkgLine.MatchString(src) && !funcLine.MatchString(src) {
        return ""
    }
    src = strings.TrimSpace(src)
    if src != "" && !pkgLine.MatchString(src) {
        src = "package main\n\n" + src
    }
    return src
}
