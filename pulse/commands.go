package pulse

// Command is a single step of a CommandList.
type Command interface {
	command()
}

// ClearCommand fills the whole target with a color.
type ClearCommand struct {
	Color Color
}

// BlitCommand draws the complete source texture scaled into the
// destination rectangle of the target.
type BlitCommand struct {
	Source DeviceTexture
	Dest   Rectangle2u
	Filter FilterMode
}

func (ClearCommand) command() {}
func (BlitCommand) command()  {}

// CommandList is a recorded command sequence rendering into one swap image.
// Drivers translate it into their native command buffers on submission.
type CommandList struct {
	Label    string
	Target   SwapImage
	Commands []Command
}

func (l *CommandList) Clear(color Color) {
	l.Commands = append(l.Commands, ClearCommand{Color: color})
}

func (l *CommandList) Blit(source DeviceTexture, dest Rectangle2u, filter FilterMode) {
	l.Commands = append(l.Commands, BlitCommand{Source: source, Dest: dest, Filter: filter})
}
