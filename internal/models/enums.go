package models

import (
	"fmt"

	"github.com/lalith-99/ugcflow/internal/apperrors"
)

// Role is the closed set of user roles. A profile's role never changes
// after it is created.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleClient  Role = "client"
	RoleCreator Role = "creator"
)

var AllRoles = []Role{RoleAdmin, RoleClient, RoleCreator}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClient, RoleCreator:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: role %q", apperrors.ErrValidation, s)
	}
	return r, nil
}

// ProjectStatus is the production pipeline position of a project.
type ProjectStatus string

const (
	StatusDraft              ProjectStatus = "draft"
	StatusBriefSubmitted     ProjectStatus = "brief_submitted"
	StatusAIProcessing       ProjectStatus = "ai_processing"
	StatusScriptsInReview    ProjectStatus = "scripts_in_review"
	StatusScriptsApproved    ProjectStatus = "scripts_approved"
	StatusCreatorAssigned    ProjectStatus = "creator_assigned"
	StatusCreatorScripting   ProjectStatus = "creator_scripting"
	StatusScriptReview       ProjectStatus = "script_review"
	StatusClientScriptReview ProjectStatus = "client_script_review"
	StatusFilming            ProjectStatus = "filming"
	StatusVideoUploaded      ProjectStatus = "video_uploaded"
	StatusVideoInReview      ProjectStatus = "video_in_review"
	StatusRevisionRequested  ProjectStatus = "revision_requested"
	StatusVideoApproved      ProjectStatus = "video_approved"
	StatusDelivered          ProjectStatus = "delivered"
	StatusCompleted          ProjectStatus = "completed"
)

// AllProjectStatuses lists every status in happy-path order, with
// revision_requested placed where the admin override list shows it.
var AllProjectStatuses = []ProjectStatus{
	StatusDraft,
	StatusBriefSubmitted,
	StatusAIProcessing,
	StatusScriptsInReview,
	StatusScriptsApproved,
	StatusCreatorAssigned,
	StatusCreatorScripting,
	StatusScriptReview,
	StatusClientScriptReview,
	StatusFilming,
	StatusVideoUploaded,
	StatusVideoInReview,
	StatusRevisionRequested,
	StatusVideoApproved,
	StatusDelivered,
	StatusCompleted,
}

func (s ProjectStatus) Valid() bool {
	for _, v := range AllProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no manual override may leave this status.
func (s ProjectStatus) Terminal() bool {
	return s == StatusCompleted
}

func ParseProjectStatus(s string) (ProjectStatus, error) {
	st := ProjectStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: project status %q", apperrors.ErrInvalidStatus, s)
	}
	return st, nil
}

// ApprovalStatus is the review state of a script or of one video track.
type ApprovalStatus string

const (
	ApprovalPending           ApprovalStatus = "pending"
	ApprovalApproved          ApprovalStatus = "approved"
	ApprovalRevisionRequested ApprovalStatus = "revision_requested"
	ApprovalRejected          ApprovalStatus = "rejected"
)

func (a ApprovalStatus) Valid() bool {
	switch a {
	case ApprovalPending, ApprovalApproved, ApprovalRevisionRequested, ApprovalRejected:
		return true
	}
	return false
}

// ScriptType distinguishes AI drafts from creator rewrites.
type ScriptType string

const (
	ScriptAIGenerated    ScriptType = "ai_generated"
	ScriptCreatorRewrite ScriptType = "creator_rewrite"
)

// AssignmentStatus is the lifecycle of a creator's binding to a project.
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentAccepted   AssignmentStatus = "accepted"
	AssignmentDeclined   AssignmentStatus = "declined"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

// Active reports whether the assignment occupies the creator's slot on the
// project.
func (a AssignmentStatus) Active() bool {
	return a != AssignmentDeclined
}

// Channel partitions the conversations of a project.
type Channel string

const (
	ChannelProject      Channel = "project"
	ChannelDirect       Channel = "direct"
	ChannelAdminClient  Channel = "admin_client"
	ChannelAdminCreator Channel = "admin_creator"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelProject, ChannelDirect, ChannelAdminClient, ChannelAdminCreator:
		return true
	}
	return false
}

func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: channel %q", apperrors.ErrValidation, s)
	}
	return c, nil
}

// TransitionSource records which operation moved a project's status.
type TransitionSource string

const (
	SourceBrief             TransitionSource = "brief"
	SourceManual            TransitionSource = "manual"
	SourceScriptGeneration  TransitionSource = "script_generation"
	SourceScriptReview      TransitionSource = "script_review"
	SourceAssignment        TransitionSource = "assignment"
	SourceCreatorSubmission TransitionSource = "creator_submission"
	SourceVideoAdminReview  TransitionSource = "video_admin_review"
	SourceVideoClientReview TransitionSource = "video_client_review"
)
