package mcpserver

// HandoffFormat explains how saved context is laid out and how a new
// conversation should use it to resume.
const HandoffFormat = `# contextbridge handoff format

Every saved conversation becomes one numbered chat entry in a project.

## Saving

Call ` + "`save_context`" + ` at the end of a working session:

- ` + "`summary`" + ` (required): what happened, in a few sentences. The first 50
  characters become the entry title, e.g. ` + "`0042 - Set up CI pipeline`" + `.
- ` + "`projectName`" + `: project to file the entry under. Defaults to
  ` + "`General Inquiries`" + `. Missing projects are created when auto-create is on.
- ` + "`keyDecisions`" + `, ` + "`nextActions`" + `, ` + "`tags`" + `: lists of short strings.

The entry becomes the project's most recent one; the flag is removed from the
entry that held it before. The response contains the session id, for example
` + "`Claude-20250802143000`" + `. Keep it.

## Resuming

Call ` + "`get_context`" + ` with the session id (or any unique part of it). The digest
lists the summary, decisions, next actions and tags of that session.

Each entry also stores a handoff prompt of this shape:

` + "```" + `text
Continue from Session ID: <session id>

Previous context:
<summary>

Key decisions made:
<decision 1>
• <decision 2>

Next actions to complete:
<action 1>
• <action 2>

Project: <project name>
Tags: <tag>, <tag>
` + "```" + `

Paste it as the first message of a new conversation to continue the work.

## Chat types

Entries are classified from the summary, first match wins:

1. test, debug: Testing
2. plan, design: Planning
3. setup, set up, config: Setup
4. document: Documentation
5. troubleshoot, fix: Troubleshooting
6. anything else: Implementation
`

// Instructions is sent to clients during initialization.
const Instructions = "Save the state of a conversation with save_context before it ends and " +
	"resume it later with get_context and the returned session id. " +
	"Use list_projects and create_project to organise entries. " +
	"Read contextbridge://handoff-format for the layout of saved context."
