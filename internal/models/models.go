package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the application-side identity record. It is created the first
// time an authenticated user is resolved, from the metadata given at sign-up.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Role        Role      `json:"role"`
	CompanyName *string   `json:"company_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthUser is a credential record. It never leaves the auth package over
// the API; PasswordHash is a bcrypt hash.
type AuthUser struct {
	ID           uuid.UUID    `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Metadata     UserMetadata `json:"metadata"`
	CreatedAt    time.Time    `json:"created_at"`
}

// UserMetadata is what the user typed on the registration form.
type UserMetadata struct {
	FullName    string  `json:"full_name"`
	Role        Role    `json:"role"`
	CompanyName *string `json:"company_name,omitempty"`
}

// Brief is the campaign description a client submits. Array fields keep
// the order the client gave them.
type Brief struct {
	Title              string     `json:"title"`
	CampaignObjective  string     `json:"campaign_objective"`
	Platforms          []string   `json:"platforms"`
	BudgetTier         *string    `json:"budget_tier,omitempty"`
	NumVideos          int        `json:"num_videos"`
	VideoStyles        []string   `json:"video_styles"`
	KeyMessaging       []string   `json:"key_messaging"`
	Dos                []string   `json:"dos"`
	Donts              []string   `json:"donts"`
	ReferenceVideoURLs []string   `json:"reference_video_urls"`
	Timeline           *string    `json:"timeline,omitempty"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	CreatorNotes       *string    `json:"creator_notes,omitempty"`
}

// Project is one UGC campaign and its position in the pipeline.
type Project struct {
	ID       uuid.UUID     `json:"id"`
	ClientID uuid.UUID     `json:"client_id"`
	Status   ProjectStatus `json:"status"`
	Brief
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectAssignment binds a creator to a project. At most one non-declined
// assignment exists per (project, creator).
type ProjectAssignment struct {
	ID         uuid.UUID        `json:"id"`
	ProjectID  uuid.UUID        `json:"project_id"`
	CreatorID  uuid.UUID        `json:"creator_id"`
	AssignedBy uuid.UUID        `json:"assigned_by"`
	Status     AssignmentStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Script is an immutable script version. Review changes ApprovalStatus,
// ApprovedBy and Feedback only; a new draft is a new row with the next
// version number.
type Script struct {
	ID                  uuid.UUID      `json:"id"`
	ProjectID           uuid.UUID      `json:"project_id"`
	AssignmentID        *uuid.UUID     `json:"assignment_id,omitempty"`
	Version             int            `json:"version"`
	Type                ScriptType     `json:"type"`
	Hooks               []string       `json:"hooks"`
	Body                string         `json:"body"`
	FilmingInstructions *string        `json:"filming_instructions,omitempty"`
	Reasoning           *string        `json:"reasoning,omitempty"`
	ApprovalStatus      ApprovalStatus `json:"approval_status"`
	ApprovedBy          *uuid.UUID     `json:"approved_by,omitempty"`
	Feedback            *string        `json:"feedback,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Video is one uploaded cut. The client track may only move once the admin
// track is approved.
type Video struct {
	ID                   uuid.UUID      `json:"id"`
	ProjectID            uuid.UUID      `json:"project_id"`
	AssignmentID         uuid.UUID      `json:"assignment_id"`
	ScriptID             *uuid.UUID     `json:"script_id,omitempty"`
	VideoURL             string         `json:"video_url"`
	ThumbnailURL         *string        `json:"thumbnail_url,omitempty"`
	DurationSeconds      *int           `json:"duration_seconds,omitempty"`
	Version              int            `json:"version"`
	IsFinal              bool           `json:"is_final"`
	AdminApprovalStatus  ApprovalStatus `json:"admin_approval_status"`
	AdminFeedback        *string        `json:"admin_feedback,omitempty"`
	ClientApprovalStatus ApprovalStatus `json:"client_approval_status"`
	ClientFeedback       *string        `json:"client_feedback,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// Message is a chat message. IDs come from a single sequence, so a higher
// ID was stored later; (CreatedAt, ID) is the total order of a partition.
type Message struct {
	ID          int64      `json:"id"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	SenderID    uuid.UUID  `json:"sender_id"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	Channel     Channel    `json:"channel"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StatusTransition is one audited change of Project.Status.
type StatusTransition struct {
	ID        int64            `json:"id"`
	ProjectID uuid.UUID        `json:"project_id"`
	From      ProjectStatus    `json:"from_status"`
	To        ProjectStatus    `json:"to_status"`
	ActorID   *uuid.UUID       `json:"actor_id,omitempty"`
	Source    TransitionSource `json:"source"`
	Reason    *string          `json:"reason,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ClientSummary is a client profile with the number of projects it owns.
type ClientSummary struct {
	Profile
	ProjectCount int `json:"project_count"`
}

// AdminStats backs the admin dashboard counters.
type AdminStats struct {
	Projects       int `json:"projects"`
	Clients        int `json:"clients"`
	Creators       int `json:"creators"`
	PendingReviews int `json:"pending_reviews"`
}

// ReviewQueue is what an admin still has to look at, oldest first.
type ReviewQueue struct {
	Projects []Project `json:"projects"`
	Scripts  []Script  `json:"scripts"`
	Videos   []Video   `json:"videos"`
}

// Actor is the resolved caller of an operation. Every component operation
// takes one explicitly instead of reading ambient request state.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// System is the actor for background work such as script generation.
var System = Actor{}

func (a Actor) IsSystem() bool { return a.ID == uuid.Nil }

// Ref returns the actor id for audit columns, nil for System.
func (a Actor) Ref() *uuid.UUID {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}
