package prompt

import (
	"os"
	"os/user"
	"strings"

	"github.com/fatih/color"
)

var (
	colorUser = color.New(color.FgGreen, color.Bold)
	colorDir  = color.New(color.FgBlue, color.Bold)
)

// Info is what a prompt can show.
type Info struct {
	User string
	Host string
	Home string
	Cwd  string
	Root bool
}

// Current gathers Info for this process, falling back to placeholders for
// anything the OS will not tell us.
func Current() Info {
	info := Info{User: "username", Host: "hostname", Cwd: "?"}

	if curUser, err := user.Current(); err == nil {
		info.User = curUser.Username
	}
	if curHostName, err := os.Hostname(); err == nil {
		info.Host = curHostName
	}
	if home, ok := os.LookupEnv("HOME"); ok {
		info.Home = home
	}
	if curCwd, err := os.Getwd(); err == nil {
		info.Cwd = curCwd
	}
	info.Root = os.Geteuid() == 0
	return info
}

// Dir abbreviates the home directory prefix of cwd to ~.
func (i Info) Dir() string {
	if i.Home == "" || i.Home == "/" {
		return i.Cwd
	}
	if i.Cwd == i.Home {
		return "~"
	}
	if strings.HasPrefix(i.Cwd, i.Home+"/") {
		return "~" + strings.TrimPrefix(i.Cwd, i.Home)
	}
	return i.Cwd
}

// Render expands \u, \h, \w and \$ in format. With colored set the user, host
// and directory are highlighted.
func Render(format string, info Info, colored bool) string {
	paint := func(c *color.Color, s string) string {
		if !colored {
			return s
		}
		return c.Sprint(s)
	}

	dollar := "$"
	if info.Root {
		dollar = "#"
	}

	return strings.NewReplacer(
		`\u`, paint(colorUser, info.User),
		`\h`, paint(colorUser, info.Host),
		`\w`, paint(colorDir, info.Dir()),
		`\$`, dollar,
	).Replace(format)
}
