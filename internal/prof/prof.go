// Package prof wraps runtime/pprof and runtime/trace for the CLI's
// --cpuprofile, --memprofile and --exectrace flags.
package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	rtrace "runtime/trace"
)

// Session owns the files of one profiling run. The zero paths disable the
// corresponding profile.
type Session struct {
	cpu     *os.File
	exec    *os.File
	memPath string
}

// Start begins CPU profiling and execution tracing as requested. On error
// everything already started is stopped.
func Start(cpuPath, memPath, tracePath string) (*Session, error) {
	s := &Session{memPath: memPath}
	if cpuPath != "" {
		f, err := os.Create(cpuPath)
		if err != nil {
			return nil, fmt.Errorf("prof: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("prof: cpu: %w", err)
		}
		s.cpu = f
	}
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			_ = s.stopCPU()
			return nil, fmt.Errorf("prof: %w", err)
		}
		if err := rtrace.Start(f); err != nil {
			_ = f.Close()
			_ = s.stopCPU()
			return nil, fmt.Errorf("prof: trace: %w", err)
		}
		s.exec = f
	}
	return s, nil
}

// Active reports whether any profile is being collected.
func (s *Session) Active() bool {
	return s != nil && (s.cpu != nil || s.exec != nil || s.memPath != "")
}

// Stop ends all running profiles and writes the heap profile. It is safe
// to call on a nil session and more than once.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	var errs []error
	errs = append(errs, s.stopCPU())
	if s.exec != nil {
		rtrace.Stop()
		errs = append(errs, s.exec.Close())
		s.exec = nil
	}
	if s.memPath != "" {
		errs = append(errs, writeHeap(s.memPath))
		s.memPath = ""
	}
	return errors.Join(errs...)
}

func (s *Session) stopCPU() error {
	if s.cpu == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := s.cpu.Close()
	s.cpu = nil
	return err
}

func writeHeap(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("prof: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("prof: heap: %w", err)
	}
	return nil
}
