package access

import (
	"fmt"

	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
)

// Capability is one thing a role is allowed to do.
type Capability string

const (
	// admin
	CapReviewScripts     Capability = "review_scripts"
	CapReviewVideoAdmin  Capability = "review_video_admin"
	CapAssignCreators    Capability = "assign_creators"
	CapRemoveAssignments Capability = "remove_assignments"
	CapOverrideStatus    Capability = "override_status"
	CapGenerateScripts   Capability = "generate_scripts"
	CapViewAllProjects   Capability = "view_all_projects"
	CapReadAudit         Capability = "read_audit"
	CapViewDashboards    Capability = "view_dashboards"

	// client
	CapSubmitBrief       Capability = "submit_brief"
	CapReviewVideoClient Capability = "review_video_client"

	// creator
	CapRespondAssignment Capability = "respond_assignment"
	CapSubmitScript      Capability = "submit_script"
	CapUploadVideo       Capability = "upload_video"

	// shared
	CapViewProjects Capability = "view_projects"
	CapSendMessages Capability = "send_messages"
)

var capabilities = map[models.Role]map[Capability]bool{
	models.RoleAdmin: set(
		CapReviewScripts, CapReviewVideoAdmin, CapAssignCreators, CapRemoveAssignments,
		CapOverrideStatus, CapGenerateScripts, CapViewAllProjects, CapReadAudit,
		CapViewDashboards, CapViewProjects, CapSendMessages,
	),
	models.RoleClient: set(
		CapSubmitBrief, CapReviewVideoClient, CapViewProjects, CapSendMessages,
	),
	models.RoleCreator: set(
		CapRespondAssignment, CapSubmitScript, CapUploadVideo, CapViewProjects, CapSendMessages,
	),
}

var channels = map[models.Role][]models.Channel{
	models.RoleAdmin:   {models.ChannelProject, models.ChannelDirect, models.ChannelAdminClient, models.ChannelAdminCreator},
	models.RoleClient:  {models.ChannelProject, models.ChannelDirect, models.ChannelAdminClient},
	models.RoleCreator: {models.ChannelProject, models.ChannelDirect, models.ChannelAdminCreator},
}

func set(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Allows reports whether role holds capability. Unknown roles hold nothing.
func Allows(role models.Role, c Capability) bool {
	return capabilities[role][c]
}

// Require returns ErrForbidden unless role holds c.
func Require(role models.Role, c Capability) error {
	if !Allows(role, c) {
		return fmt.Errorf("%w: role %q lacks %s", apperrors.ErrForbidden, role, c)
	}
	return nil
}

// Channels lists the message channels a role may use.
func Channels(role models.Role) []models.Channel {
	return channels[role]
}

// CanUseChannel reports whether role may read and write ch. Project
// membership is checked separately.
func CanUseChannel(role models.Role, ch models.Channel) bool {
	for _, c := range channels[role] {
		if c == ch {
			return true
		}
	}
	return false
}
