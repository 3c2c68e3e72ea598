// Package updater pulls new bot code from a remote repository and swaps it
// into the install root while the bot keeps running.
//
// The cycle is: compare version markers, fetch the whole bundle into a
// staging directory, swap it over the live code directory, persist the new
// marker. Nothing is retried; the caller reports the outcome and decides.
package updater

import (
	"context"
	"sync"

	"CommunityBot/fault"
	"CommunityBot/logging"

	"github.com/pkg/errors"
)

// Outcome of an update run.
type Outcome int

const (
	Failed Outcome = iota
	UpToDate
	// Available is only reported by Check.
	Available
	Updated
	InProgress
)

// Status messages reported back to whoever asked for the update.
const (
	StatusUpToDate   = "Bot is already up-to-date."
	StatusUpdated    = "Bot has been updated successfully."
	StatusInProgress = "An update is already in progress."
)

// ErrInProgress is returned when Run is called while another run is active.
var ErrInProgress = errors.New("update already in progress")

// Result describes one update run.
type Result struct {
	Outcome Outcome
	Local   string
	Remote  string
	// Message is the plain status line for the operator.
	Message string
}

// Progress receives a line per completed stage.
type Progress func(message string)

type Updater struct {
	oracle  *Oracle
	fetcher Fetcher
	swapper *Swapper
	layout  Layout
	log     logging.Logger

	// guards the whole fetch→swap cycle; TryLock so a second caller is
	// turned away instead of queued behind a finished update
	running sync.Mutex
}

func New(oracle *Oracle, fetcher Fetcher, layout Layout, log logging.Logger) *Updater {
	return &Updater{
		oracle:  oracle,
		fetcher: fetcher,
		swapper: NewSwapper(layout, oracle, log),
		layout:  layout,
		log:     log,
	}
}

// Check compares the remote and local markers without fetching anything.
func (u *Updater) Check(ctx context.Context) (Result, error) {
	local, err := u.oracle.Local()
	if err != nil {
		return failed(err), err
	}
	remote, err := u.oracle.Remote(ctx)
	if err != nil {
		r := failed(err)
		r.Local = local
		return r, err
	}
	r := Result{Outcome: UpToDate, Local: local, Remote: remote, Message: StatusUpToDate}
	if NeedsUpdate(remote, local) {
		r.Outcome = Available
		r.Message = "Update available: " + local + " -> " + remote
	}
	return r, nil
}

// LocalVersion returns the installed marker.
func (u *Updater) LocalVersion() (string, error) {
	return u.oracle.Local()
}

// Run performs the whole update cycle. It is blocking and not cancellable
// once the swap has begun; ctx only bounds the network part.
func (u *Updater) Run(ctx context.Context, progress Progress) (Result, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if !u.running.TryLock() {
		return Result{Outcome: InProgress, Message: StatusInProgress}, ErrInProgress
	}
	defer u.running.Unlock()

	log := u.log.WithField("code", u.layout.CodePath())

	r, err := u.Check(ctx)
	if err != nil {
		log.WithError(err).Error("version check failed")
		return r, err
	}
	if r.Outcome == UpToDate {
		log.WithField("version", r.Local).Info("already up to date")
		return r, nil
	}
	progress(r.Message)
	log = log.WithField("from", r.Local).WithField("to", r.Remote)

	staging, err := u.fetcher.Fetch(ctx, u.layout.Root)
	if err != nil {
		log.WithError(err).Error("fetch failed")
		return withVersions(failed(err), r), err
	}
	defer func() {
		if err := staging.Remove(); err != nil {
			log.WithError(err).WithField("staging", staging.Root).Warn("could not remove staging directory")
		}
	}()
	progress("Downloaded version " + r.Remote + ".")

	if err := u.swapper.Swap(staging, r.Remote); err != nil {
		entry := log.WithError(err)
		if fault.IsFatal(err) {
			entry.Error("swap left the install without live code")
		} else {
			entry.Error("swap failed")
		}
		return withVersions(failed(err), r), err
	}

	log.Info("update installed")
	return Result{Outcome: Updated, Local: r.Local, Remote: r.Remote, Message: StatusUpdated}, nil
}

func failed(err error) Result {
	return Result{Outcome: Failed, Message: fault.Status(err)}
}

func withVersions(r, from Result) Result {
	r.Local, r.Remote = from.Local, from.Remote
	return r
}
