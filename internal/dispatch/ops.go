package dispatch

// Op is one operation the dispatcher can run. The set of implementations is
// closed; Dispatcher.Run switches over all of them.
type Op interface {
	opName() string
}

type (
	// Create makes a new empty file.
	Create struct{ Name string }

	// ReadFile prints a whole file.
	ReadFile struct{ Name string }

	// Copy duplicates Source into a new file Dest.
	Copy struct{ Source, Dest string }

	// Delete removes a file and then its changelog record.
	Delete struct{ Name string }

	// Append adds Content as a new last line.
	Append struct{ Name, Content string }

	DeleteLine struct {
		Name string
		Line int
	}

	InsertLine struct {
		Name    string
		Line    int
		Content string
	}

	ShowLine struct {
		Name string
		Line int
	}

	CountLines struct{ Name string }

	ListDir struct{}

	// ResetChangelog removes a file's changelog record.
	ResetChangelog struct{ Name string }

	ShowChangelog struct{ Name string }

	// ListBackups lists preserved pre-images left by failed rewrites.
	ListBackups struct{}

	// Recover writes a preserved pre-image to a new file Dest.
	Recover struct{ ID, Dest string }
)

func (Create) opName() string         { return "create" }
func (ReadFile) opName() string       { return "read file" }
func (Copy) opName() string           { return "copy" }
func (Delete) opName() string         { return "delete" }
func (Append) opName() string         { return "append line" }
func (DeleteLine) opName() string     { return "delete line" }
func (InsertLine) opName() string     { return "insert line" }
func (ShowLine) opName() string       { return "show line" }
func (CountLines) opName() string     { return "count lines" }
func (ListDir) opName() string        { return "list directory" }
func (ResetChangelog) opName() string { return "reset changelog" }
func (ShowChangelog) opName() string  { return "show changelog" }
func (ListBackups) opName() string    { return "list backups" }
func (Recover) opName() string        { return "recover" }

// Name returns a short human-readable name for op.
func Name(op Op) string {
	return op.opName()
}
