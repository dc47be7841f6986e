package policy

import (
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/apierror"
)

// NotePolicy encapsulates all business rules for note access.
// It returns apierror.ErrorResponse directly for seamless integration with handlers.
type NotePolicy struct{}

func NewNotePolicy() *NotePolicy {
	return &NotePolicy{}
}

// CanSee only rejects missing notes. Approval gates listings, not direct
// access by id, so actor is unused and may be nil.
func (p *NotePolicy) CanSee(note *entity.Note, _ *entity.User) apierror.ErrorResponse {
	if note == nil {
		return apierror.NoteNotFoundError
	}
	return nil
}

func (p *NotePolicy) CanUpdate(note *entity.Note, actor *entity.User) apierror.ErrorResponse {
	if note == nil {
		return apierror.NoteNotFoundError
	}

	if actor == nil || !note.IsOwnedBy(actor.ID) {
		return apierror.NoteOwnershipError
	}
	return nil
}

func (p *NotePolicy) CanDelete(note *entity.Note, actor *entity.User) apierror.ErrorResponse {
	if note == nil {
		return apierror.NoteNotFoundError
	}

	if actor == nil || !note.IsOwnedBy(actor.ID) {
		return apierror.NoteDeleteForbiddenError
	}
	return nil
}
