//go:build !unix

package termgrid

// ingestSharedMemory is unavailable on non-POSIX platforms; the
// shared_memory transmission medium always reports UnsupportedMedium
// on this build.
func (l *LoadingImage) ingestSharedMemory(cmd *KittyCommand) error {
	return loaderErr(ErrUnsupportedMedium, "shared_memory transmission is not supported on this platform")
}
