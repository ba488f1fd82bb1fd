package shell

import (
	"embed"
	"strings"
)

//go:embed helptext
var helptext embed.FS

func usage() string {
	dat, err := helptext.ReadFile("helptext/usage.txt")
	if err != nil {
		return "Error loading helptext: " + err.Error()
	}
	return string(dat)
}

func usageTopic(topic string) string {
	dat, err := helptext.ReadFile("helptext/" + topic + ".txt")
	if err != nil {
		return "There is no help text for the topic " + topic
	}
	return string(dat)
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(strings.TrimSuffix(usage(), "\n")), nil
	}
	return msg(strings.TrimSuffix(usageTopic(cmd.args[0]), "\n")), nil
}
