package buildinfo

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

const Service = "vrpga"

func Info() map[string]string {
	return map[string]string{
		"service": Service,
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}
