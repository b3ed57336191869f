// Package schema names the persisted ticket relation shared by every engine.
package schema

// Current schema version stamped into the meta table.
const Version = 2

const (
	TicketTable = "TicketManagerTicketsV2"
	MetaTable   = "TicketManagerMeta"
)

// Ticket columns, in select order.
const (
	ColID           = "ID"
	ColStatus       = "STATUS"
	ColPriority     = "PRIORITY"
	ColCreator      = "CREATOR"
	ColActorKey     = "UUID"
	ColAssignment   = "ASSIGNMENT"
	ColLocation     = "LOCATION"
	ColCreationTime = "CREATIONTIME"
	ColComments     = "COMMENTS"
	ColUnread       = "UPDATEDBYOTHERUSER"
)

// Columns lists every ticket column in select and insert order.
var Columns = []string{
	ColID, ColStatus, ColPriority, ColCreator, ColActorKey,
	ColAssignment, ColLocation, ColCreationTime, ColComments, ColUnread,
}

// Index names.
const (
	IndexStatus = "IDX_TMV2_STATUS"
	IndexUnread = "IDX_TMV2_UNREAD"
)

// Sentinel values stored in place of absent data.
const (
	NoActorKey   = "CONSOLE"
	NoAssignment = " "
	NoLocation   = "NoLocation"
)

// Meta keys.
const (
	MetaSchemaVersion = "schema_version"
	MetaConvertedFrom = "converted_from"
)
