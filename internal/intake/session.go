package intake

// session.go hosts one intake: the form, the three material sections and
// the energy list, all guarded by a single mutex.
//
// Every mutation bumps the revision and refreshes the cached QC result, so
// readers always see QC computed from the latest BOM, packaging and basis
// state. QC results are only ever replaced by results of an equal or newer
// revision.

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/JonMunkholm/lca-intake/internal/metrics"
)

// Session is one in-memory intake.
type Session struct {
	id      string
	created time.Time
	now     func() time.Time

	mu          sync.Mutex
	touched     time.Time
	revision    uint64
	form        Form
	sections    map[Kind]*Section
	energy      energyList
	qc          QCResult
	submittedAt *time.Time
}

// SessionState is the serializable view returned to UI collaborators.
type SessionState struct {
	ID          string                `json:"id"`
	Revision    uint64                `json:"revision"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	SubmittedAt *time.Time            `json:"submitted_at,omitempty"`
	Form        Form                  `json:"form"`
	Sections    map[Kind]SectionState `json:"sections"`
	Energy      []EnergyInput         `json:"energy"`
	QC          QCResult              `json:"qc"`
	QCMessage   string                `json:"qc_message"`
}

// NewSession creates a session with one empty row per section and one
// empty energy entry.
func NewSession(id string, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	t := now()
	s := &Session{
		id:       id,
		created:  t,
		touched:  t,
		now:      now,
		sections: make(map[Kind]*Section, len(Kinds)),
	}
	for _, k := range Kinds {
		sec := NewSection(k)
		sec.AddRow()
		s.sections[k] = sec
	}
	s.energy.add(EnergyInput{})
	s.refreshQC()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LastActive returns the time of the last access.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Revision returns the current mutation counter.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// mutate runs fn under the lock. On success it bumps the revision and
// refreshes QC.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()
	if err := fn(); err != nil {
		return err
	}
	s.revision++
	s.refreshQC()
	return nil
}

// read runs fn under the lock without bumping the revision.
func (s *Session) read(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()
	fn()
}

func (s *Session) section(kind Kind) (*Section, error) {
	sec, ok := s.sections[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, kind)
	}
	return sec, nil
}

// refreshQC must be called with mu held.
func (s *Session) refreshQC() {
	res := Evaluate(s.sections[KindBOM].Snapshot(), s.sections[KindPackaging].Snapshot(), s.form.Basis)
	res.Revision = s.revision
	s.storeQC(res)
	metrics.IncQCEvaluation(string(res.Status))
}

// storeQC keeps res only if it is not older than the cached result.
// Must be called with mu held.
func (s *Session) storeQC(res QCResult) bool {
	if res.Revision < s.qc.Revision {
		return false
	}
	s.qc = res
	return true
}

// SetFields applies raw form field values.
func (s *Session) SetFields(values map[string]string) error {
	return s.mutate(func() error { return s.form.SetFields(values) })
}

// SetBasisType switches the active basis.
func (s *Session) SetBasisType(t BasisType) error {
	if _, err := ParseBasisType(string(t)); err != nil {
		return err
	}
	return s.mutate(func() error {
		s.form.Basis.Type = t
		return nil
	})
}

// SetProductionMode switches the production-reporting mode.
func (s *Session) SetProductionMode(m ProductionMode) error {
	if _, err := ParseProductionMode(string(m)); err != nil {
		return err
	}
	return s.mutate(func() error {
		s.form.Production.Mode = m
		return nil
	})
}

// AddRow appends an empty row to a section.
func (s *Session) AddRow(kind Kind) (string, error) {
	var id string
	err := s.mutate(func() error {
		sec, err := s.section(kind)
		if err != nil {
			return err
		}
		id = sec.AddRow()
		return nil
	})
	return id, err
}

// UpdateRow applies a partial update to a row.
func (s *Session) UpdateRow(kind Kind, id string, in RowInput) error {
	return s.mutate(func() error {
		sec, err := s.section(kind)
		if err != nil {
			return err
		}
		return sec.UpdateRow(id, in)
	})
}

// RemoveRow deletes a row. Removing an unknown row is a no-op that
// reports false.
func (s *Session) RemoveRow(kind Kind, id string) (bool, error) {
	var removed bool
	err := s.mutate(func() error {
		sec, err := s.section(kind)
		if err != nil {
			return err
		}
		removed = sec.RemoveRow(id)
		return nil
	})
	return removed, err
}

// ImportRows appends rows to a section from CSV.
func (s *Session) ImportRows(kind Kind, r io.Reader) (ImportResult, error) {
	var res ImportResult
	err := s.mutate(func() error {
		sec, err := s.section(kind)
		if err != nil {
			return err
		}
		res, err = sec.ImportRows(r)
		return err
	})
	return res, err
}

// SetModeEnabled toggles a transport mode on a section.
func (s *Session) SetModeEnabled(kind Kind, mode Mode, enabled bool) error {
	return s.mutate(func() error {
		sec, err := s.section(kind)
		if err != nil {
			return err
		}
		return sec.SetModeEnabled(mode, enabled)
	})
}

// SetModeUnit changes a section's distance unit for mode.
func (s *Session) SetModeUnit(kind Kind, mode Mode, unit string) error {
	return s.mutate(func() error {
		sec, err := s.section(kind)
		if err != nil {
			return err
		}
		return sec.SetModeUnit(mode, unit)
	})
}

// SetCompact toggles compact display on a section.
func (s *Session) SetCompact(kind Kind, compact bool) error {
	return s.mutate(func() error {
		sec, err := s.section(kind)
		if err != nil {
			return err
		}
		sec.SetCompact(compact)
		return nil
	})
}

// Snapshot returns the current snapshot of a section.
func (s *Session) Snapshot(kind Kind) (SectionSnapshot, error) {
	var (
		snap SectionSnapshot
		err  error
	)
	s.read(func() {
		var sec *Section
		if sec, err = s.section(kind); err == nil {
			snap = sec.Snapshot()
		}
	})
	return snap, err
}

// AddEnergy appends an energy entry and returns its handle.
func (s *Session) AddEnergy(in EnergyInput) (string, error) {
	if in.Type != "" && !IsEnergyType(in.Type) {
		return "", fmt.Errorf("%w: energy type %q", ErrInvalidValue, in.Type)
	}
	var id string
	err := s.mutate(func() error {
		id = s.energy.add(in)
		return nil
	})
	return id, err
}

// UpdateEnergy applies a partial update to an energy entry.
func (s *Session) UpdateEnergy(id string, u EnergyUpdate) error {
	return s.mutate(func() error { return s.energy.update(id, u) })
}

// RemoveEnergy deletes an energy entry. Unknown ids report false.
func (s *Session) RemoveEnergy(id string) bool {
	var removed bool
	_ = s.mutate(func() error {
		removed = s.energy.remove(id)
		return nil
	})
	return removed
}

// QC returns the QC result for the current revision.
func (s *Session) QC() QCResult {
	var res QCResult
	s.read(func() { res = s.qc })
	return res
}

// Submit runs the submission gate. On success the session records the
// submission time.
func (s *Session) Submit() error {
	var err error
	s.read(func() {
		err = ValidateSubmission(s.form,
			s.sections[KindBOM].Snapshot(),
			s.sections[KindPackaging].Snapshot())
		if err == nil {
			t := s.now()
			s.submittedAt = &t
		}
	})
	return err
}

// Payload builds a fresh export document from the current state.
func (s *Session) Payload() Payload {
	var p Payload
	s.read(func() { p = s.payloadLocked() })
	return p
}

// payloadLocked must be called with mu held.
func (s *Session) payloadLocked() Payload {
	return BuildPayload(s.form,
		s.sections[KindBOM].Snapshot(),
		s.sections[KindPackaging].Snapshot(),
		s.sections[KindAncillary].Snapshot(),
		s.energy.list())
}

// PayloadWithQC returns the payload and the QC result of the same revision.
func (s *Session) PayloadWithQC() (Payload, QCResult) {
	var (
		p  Payload
		qc QCResult
	)
	s.read(func() {
		p = s.payloadLocked()
		qc = s.qc
	})
	return p, qc
}

// Form returns a copy of the form.
func (s *Session) Form() Form {
	var f Form
	s.read(func() { f = s.form })
	return f
}

// State returns the complete raw state of the session.
func (s *Session) State() SessionState {
	var st SessionState
	s.read(func() {
		st = SessionState{
			ID:          s.id,
			Revision:    s.revision,
			CreatedAt:   s.created,
			UpdatedAt:   s.touched,
			SubmittedAt: s.submittedAt,
			Form:        s.form,
			Sections:    make(map[Kind]SectionState, len(s.sections)),
			Energy:      s.energy.list(),
			QC:          s.qc,
			QCMessage:   s.qc.Message(),
		}
		for k, sec := range s.sections {
			st.Sections[k] = sec.State()
		}
	})
	return st
}
