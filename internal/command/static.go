package command

// TextCommand replies with a fixed string. Covers the static meme and link
// commands that make up most of the alias table.
type TextCommand struct {
	Text     string
	HelpText string
}

func NewTextCommand(text string) *TextCommand {
	return &TextCommand{Text: text}
}

func (t *TextCommand) Invoke(cc *Context) {
	cc.Reply(t.Text)
}

func (t *TextCommand) Help(prefix string) string {
	if t.HelpText == "" {
		return prefix + " replies with a fixed message."
	}
	return t.HelpText
}

// RemoteFileCommand replies with a hosted file's URL; the chat client renders
// it inline.
type RemoteFileCommand struct {
	URL      string
	HelpText string
}

func NewRemoteFileCommand(url string) *RemoteFileCommand {
	return &RemoteFileCommand{URL: url}
}

func (rf *RemoteFileCommand) Invoke(cc *Context) {
	cc.Reply(rf.URL)
}

func (rf *RemoteFileCommand) Help(prefix string) string {
	if rf.HelpText == "" {
		return prefix + " posts a linked file."
	}
	return rf.HelpText
}
