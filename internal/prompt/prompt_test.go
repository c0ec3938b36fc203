package prompt

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestDir(t *testing.T) {
	cases := []struct {
		home, cwd, want string
	}{
		{"/home/ann", "/home/ann", "~"},
		{"/home/ann", "/home/ann/src/x", "~/src/x"},
		{"/home/ann", "/home/anne", "/home/anne"},
		{"/home/ann", "/tmp", "/tmp"},
		{"", "/tmp", "/tmp"},
		{"/", "/etc", "/etc"},
	}

	for _, tc := range cases {
		t.Run(tc.cwd, func(t *testing.T) {
			assert.Equal(t, tc.want, Info{Home: tc.home, Cwd: tc.cwd}.Dir())
		})
	}
}

func TestRender(t *testing.T) {
	info := Info{User: "ann", Host: "box", Home: "/home/ann", Cwd: "/home/ann/src"}

	assert.Equal(t, "ann@box:~/src$ ", Render(`\u@\h:\w\$ `, info, false))
	assert.Equal(t, "smash> ", Render("smash> ", info, false))

	info.Root = true
	assert.Equal(t, "[~/src]# ", Render(`[\w]\$ `, info, false))
}

func TestRenderColor(t *testing.T) {
	saved := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = saved })

	info := Info{User: "ann", Host: "box", Home: "/home/ann", Cwd: "/home/ann"}
	got := Render(`\w\$ `, info, true)
	assert.Equal(t, colorDir.Sprint("~")+"$ ", got)
	assert.Contains(t, got, "\x1b[")
}

func TestCurrent(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)

	info := Current()
	assert.Equal(t, "~", info.Dir())
	assert.NotEmpty(t, info.User)
	assert.NotEmpty(t, info.Host)
}
