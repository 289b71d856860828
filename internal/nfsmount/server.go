package nfsmount

import (
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"
)

// Server manages the NFS server lifecycle.
type Server struct {
	listener net.Listener
	port     int
	done     chan error
}

// NewServer starts an NFS server on an ephemeral loopback port backed by fs.
func NewServer(fs billy.Filesystem) (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("nfs listen: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	handler := nfshelper.NewNullAuthHandler(fs)
	cacheHelper := nfshelper.NewCachingHandler(handler, 4096)

	s := &Server{listener: listener, port: port, done: make(chan error, 1)}
	go func() {
		s.done <- nfs.Serve(listener, cacheHelper)
	}()
	return s, nil
}

// Port returns the TCP port the NFS server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Done delivers the serve loop's exit error once the server stops.
func (s *Server) Done() <-chan error {
	return s.done
}

// Close stops the NFS server by closing the listener.
func (s *Server) Close() error {
	return s.listener.Close()
}

// mountOptions returns the read-only NFSv3 option string for goos, with both
// the NFS and mount protocols on port.
func mountOptions(goos string, port int) (string, error) {
	opts := []string{
		"port=" + strconv.Itoa(port),
		"mountport=" + strconv.Itoa(port),
		"vers=3",
		"tcp",
	}
	switch goos {
	case "darwin":
		opts = append(opts, "locallocks", "noresvport", "rdonly")
	case "linux":
		opts = append(opts, "local_lock=all", "nolock", "ro")
	default:
		return "", fmt.Errorf("nfs preview mounting is not supported on %s", goos)
	}
	return strings.Join(opts, ","), nil
}

// unmountCommands lists the commands to try, in order, to detach
// mountpoint. diskutil needs no sudo for user NFS mounts on macOS.
func unmountCommands(goos, mountpoint string) [][]string {
	umount := []string{"sudo", "umount", mountpoint}
	if goos == "darwin" {
		return [][]string{{"diskutil", "unmount", mountpoint}, umount}
	}
	return [][]string{umount}
}

func run(argv []string) error {
	output, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", strings.Join(argv, " "), err, output)
	}
	return nil
}

// Mount mounts the preview served on port read-only at mountpoint. Requires
// sudo.
func Mount(port int, mountpoint string) error {
	opts, err := mountOptions(runtime.GOOS, port)
	if err != nil {
		return err
	}
	return run([]string{"sudo", "mount", "-t", "nfs", "-o", opts, "localhost:/", mountpoint})
}

// Unmount detaches mountpoint.
func Unmount(mountpoint string) error {
	var err error
	for _, argv := range unmountCommands(runtime.GOOS, mountpoint) {
		if err = run(argv); err == nil {
			return nil
		}
	}
	return err
}
