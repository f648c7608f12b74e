package engine

import (
	"errors"
)

var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrMissingUser = errors.New("missing user id")
var ErrNoReadyCheck = errors.New("no ready check in progress")

// State is everything the launch logic owns. Registries are shared by
// reference between the State values Apply receives and returns.
type State struct {
	Roles        []Role
	Availability *Availability
	Ready        *ReadyRegistry
	InProgress   bool
}

type CommandType string

const (
	CmdUpdateAvailability CommandType = "UpdateAvailability"
	CmdUpdateReady        CommandType = "UpdateReady"
	CmdClearUser          CommandType = "ClearUser"
	CmdAttemptLaunch      CommandType = "AttemptLaunch"
	CmdResolveReadyCheck  CommandType = "ResolveReadyCheck"
)

/*
	CmdUpdateAvailability -> EvtAvailabilityUpdated -> EvtStatusChanged [-> EvtReadyCheckOpened]
	CmdUpdateReady        -> EvtReadyUpdated -> EvtStatusChanged [-> EvtReadyCheckOpened]
	CmdClearUser          -> EvtStatusChanged [-> EvtReadyCheckOpened]
	CmdAttemptLaunch      -> EvtStatusChanged [-> EvtReadyCheckOpened]
	CmdResolveReadyCheck  -> EvtStatusChanged -> EvtLaunched -> EvtAvailabilityUpdated... -> EvtStatusChanged
	                      -> EvtStatusChanged -> EvtReadyCheckAborted -> EvtStatusChanged
*/

type Command struct {
	Type         CommandType
	UserID       string
	Roles        []string
	Captain      bool
	Ready        bool
	Restrictions Restrictions
}

type EventType string

const (
	EvtStatusChanged       EventType = "StatusChanged"
	EvtAvailabilityUpdated EventType = "AvailabilityUpdated"
	EvtReadyUpdated        EventType = "ReadyUpdated"
	EvtReadyCheckOpened    EventType = "ReadyCheckOpened"
	EvtReadyCheckAborted   EventType = "ReadyCheckAborted"
	EvtLaunched            EventType = "Launched"
)

type Event struct {
	Type       EventType
	UserID     string
	Membership *Membership
	Ready      bool
	Status     *Snapshot
	Roster     *Roster
}

// Apply runs one command against s and returns the events to emit. Every
// command that changes availability or readiness is followed by a launch
// attempt.
func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s

	switch cmd.Type {
	case CmdUpdateAvailability:
		if cmd.UserID == "" {
			return nil, s, ErrMissingUser
		}
		m := newState.Availability.Update(cmd.UserID, cmd.Roles, cmd.Captain, cmd.Restrictions)
		events := []Event{{Type: EvtAvailabilityUpdated, UserID: cmd.UserID, Membership: &m}}
		return append(events, attempt(&newState)...), newState, nil

	case CmdUpdateReady:
		if cmd.UserID == "" {
			return nil, s, ErrMissingUser
		}
		// Outside a window there is nothing to affirm.
		if newState.InProgress {
			newState.Ready.Set(cmd.UserID, cmd.Ready)
		}
		events := []Event{{Type: EvtReadyUpdated, UserID: cmd.UserID, Ready: newState.Ready.Has(cmd.UserID)}}
		return append(events, attempt(&newState)...), newState, nil

	case CmdClearUser:
		if cmd.UserID == "" {
			return nil, s, ErrMissingUser
		}
		newState.Availability.Clear(cmd.UserID)
		return attempt(&newState), newState, nil

	case CmdAttemptLaunch:
		return attempt(&newState), newState, nil

	case CmdResolveReadyCheck:
		if !newState.InProgress {
			return nil, s, ErrNoReadyCheck
		}
		return resolve(&newState), newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// attempt re-evaluates the launch conditions and opens a ready check when
// only readiness is missing. An open window is never reopened.
func attempt(s *State) []Event {
	unmet := CheckLaunchConditions(*s)
	events := []Event{statusEvent(*s, unmet)}
	if s.InProgress {
		return events
	}

	if len(without(unmet, CondReadyNotChecked)) == 0 {
		s.InProgress = true
		s.Ready.Reset()
		events = append(events, Event{Type: EvtReadyCheckOpened})
	}
	return events
}

// resolve closes the open window: launch with the ready users if every
// condition holds, abort otherwise.
func resolve(s *State) []Event {
	unmet := CheckLaunchConditions(*s)
	pools, captains := s.Availability.Pruned(s.Ready.Users())
	final := buildSnapshot(s.Roles, pools, captains, unmet, true)
	events := []Event{{Type: EvtStatusChanged, Status: &final}}

	if len(unmet) == 0 {
		roster := buildRoster(s.Roles, pools, captains)
		events = append(events, Event{Type: EvtLaunched, Roster: &roster})

		// Launched users are committed to the draft.
		for _, id := range roster.Users() {
			s.Availability.Clear(id)
			m := s.Availability.Membership(id)
			events = append(events, Event{Type: EvtAvailabilityUpdated, UserID: id, Membership: &m})
		}
	} else {
		events = append(events, Event{Type: EvtReadyCheckAborted})
	}

	s.InProgress = false
	s.Ready.Reset()
	return append(events, statusEvent(*s, CheckLaunchConditions(*s)))
}

func statusEvent(s State, unmet []Condition) Event {
	snap := buildSnapshot(s.Roles, s.Availability.Pools(), s.Availability.Captains(), unmet, s.InProgress)
	return Event{Type: EvtStatusChanged, Status: &snap}
}
