package dropbox

// Native wire shapes of the Dropbox HTTP API. Field names are
// vendor-fixed; only the subset the adapter reads is declared.

const (
	tagFile   = "file"
	tagFolder = "folder"
)

// entryMetadata is files.Metadata: one file or folder entry. Folders
// carry no timestamps at all; that absence must survive mapping.
type entryMetadata struct {
	Tag            string `json:".tag"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	PathLower      string `json:"path_lower"`
	PathDisplay    string `json:"path_display"`
	Rev            string `json:"rev,omitempty"`
	ClientModified string `json:"client_modified,omitempty"`
	ServerModified string `json:"server_modified,omitempty"`
	Size           int64  `json:"size,omitempty"`
}

type listFolderArgs struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Limit     int    `json:"limit,omitempty"`
}

type listFolderResult struct {
	Entries []entryMetadata `json:"entries"`
	Cursor  string          `json:"cursor"`
	HasMore bool            `json:"has_more"`
}

type listFolderContinueArgs struct {
	Cursor string `json:"cursor"`
}

type pathArgs struct {
	Path string `json:"path"`
}

type searchArgs struct {
	Query string `json:"query"`
}

type searchResult struct {
	Matches []struct {
		Metadata struct {
			Metadata entryMetadata `json:"metadata"`
		} `json:"metadata"`
	} `json:"matches"`
}

type createFolderArgs struct {
	Path       string `json:"path"`
	Autorename bool   `json:"autorename"`
}

type createFolderResult struct {
	Metadata entryMetadata `json:"metadata"`
}

type listRevisionsArgs struct {
	Path  string `json:"path"`
	Limit int    `json:"limit,omitempty"`
}

type listRevisionsResult struct {
	Entries []entryMetadata `json:"entries"`
}

type exportArgs struct {
	Path         string `json:"path"`
	ExportFormat string `json:"export_format,omitempty"`
}

// memberSelector addresses a sharing recipient. Exactly one of Email or
// DropboxID is set, matching Tag.
type memberSelector struct {
	Tag       string `json:".tag"`
	Email     string `json:"email,omitempty"`
	DropboxID string `json:"dropbox_id,omitempty"`
}

type addFileMemberArgs struct {
	File        string           `json:"file"`
	Members     []memberSelector `json:"members"`
	AccessLevel string           `json:"access_level"`
	Quiet       bool             `json:"quiet"`
}

type updateFileMemberArgs struct {
	File        string         `json:"file"`
	Member      memberSelector `json:"member"`
	AccessLevel string         `json:"access_level"`
}

type removeFileMemberArgs struct {
	File   string         `json:"file"`
	Member memberSelector `json:"member"`
}

type listFileMembersArgs struct {
	File string `json:"file"`
}

type taggedValue struct {
	Tag string `json:".tag"`
}

// membershipInfo is one grant from sharing/list_file_members. Dropbox
// reports inheritance per membership.
type membershipInfo struct {
	AccessType  taggedValue `json:"access_type"`
	IsInherited *bool       `json:"is_inherited,omitempty"`
	User        *struct {
		AccountID    string `json:"account_id"`
		Email        string `json:"email"`
		DisplayName  string `json:"display_name"`
		TeamMemberID string `json:"team_member_id,omitempty"`
	} `json:"user,omitempty"`
	Group *struct {
		GroupID   string `json:"group_id"`
		GroupName string `json:"group_name"`
	} `json:"group,omitempty"`
	Invitee *struct {
		Tag   string `json:".tag"`
		Email string `json:"email"`
	} `json:"invitee,omitempty"`
}

type listFileMembersResult struct {
	Users    []membershipInfo `json:"users"`
	Groups   []membershipInfo `json:"groups"`
	Invitees []membershipInfo `json:"invitees"`
}

type sharedLinkArgs struct {
	Path string `json:"path"`
}

type sharedLinkResult struct {
	URL string `json:"url"`
}

type listSharedLinksArgs struct {
	Path       string `json:"path"`
	DirectOnly bool   `json:"direct_only"`
}

type listSharedLinksResult struct {
	Links []sharedLinkResult `json:"links"`
}

type currentAccountResult struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Name      struct {
		DisplayName string `json:"display_name"`
	} `json:"name"`
}

type spaceUsageResult struct {
	Used       int64 `json:"used"`
	Allocation struct {
		Tag       string `json:".tag"`
		Allocated int64  `json:"allocated"`
	} `json:"allocation"`
}

type uploadSessionStartResult struct {
	SessionID string `json:"session_id"`
}

type uploadSessionCursor struct {
	SessionID string `json:"session_id"`
	Offset    int64  `json:"offset"`
}

type uploadSessionAppendArgs struct {
	Cursor uploadSessionCursor `json:"cursor"`
	Close  bool                `json:"close"`
}

type uploadCommitInfo struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
}

type uploadSessionFinishArgs struct {
	Cursor uploadSessionCursor `json:"cursor"`
	Commit uploadCommitInfo    `json:"commit"`
}

type apiErrorBody struct {
	ErrorSummary string `json:"error_summary"`
}
