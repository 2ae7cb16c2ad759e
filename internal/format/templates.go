package format

// defaultTemplates holds the stock message template for every template key.
// \x02 is mIRC bold; messengers that don't render it strip it instead.
// Channels override these through the settings store under "format.<key>".
var defaultTemplates = map[string]string{
	"milestone-created": "\x02[{project[name]}]\x02 Milestone \x02#{milestone[id]} {milestone[name]}\x02 created by {user[name]} {url}",
	"milestone-deleted": "\x02[{project[name]}]\x02 Milestone \x02#{milestone[id]} {milestone[name]}\x02 deleted by {user[name]} {url}",
	"milestone-changed": "\x02[{project[name]}]\x02 Milestone \x02#{milestone[id]} {milestone[name]}\x02 changed by {user[name]} {url}",

	"userstory-created": "\x02[{project[name]}]\x02 Userstory \x02#{userstory[id]} {userstory[subject]}\x02 created by {user[name]} {url}",
	"userstory-deleted": "\x02[{project[name]}]\x02 Userstory \x02#{userstory[id]} {userstory[subject]}\x02 deleted by {user[name]} {url}",
	"userstory-changed": "\x02[{project[name]}]\x02 Userstory \x02#{userstory[id]} {userstory[subject]}\x02 changed by {user[name]} {url}",

	"task-created": "\x02[{project[name]}]\x02 Task \x02#{task[id]} {task[subject]}\x02 created by {user[name]} {url}",
	"task-deleted": "\x02[{project[name]}]\x02 Task \x02#{task[id]} {task[subject]}\x02 deleted by {user[name]} {url}",
	"task-changed": "\x02[{project[name]}]\x02 Task \x02#{task[id]} {task[subject]}\x02 changed by {user[name]} {url}",

	"issue-created": "\x02[{project[name]}]\x02 Issue \x02#{issue[id]} {issue[subject]}\x02 created by {user[name]} {url}",
	"issue-deleted": "\x02[{project[name]}]\x02 Issue \x02#{issue[id]} {issue[subject]}\x02 deleted by {user[name]} {url}",
	"issue-changed": "\x02[{project[name]}]\x02 Issue \x02#{issue[id]} {issue[subject]}\x02 changed by {user[name]} {url}",

	"wikipage-created": "\x02[{project[name]}]\x02 Wikipage \x02#{wikipage[slug]} {wikipage[name]}\x02 created by {user[name]} {url}",
	"wikipage-deleted": "\x02[{project[name]}]\x02 Wikipage \x02#{wikipage[slug]} {wikipage[name]}\x02 deleted by {user[name]} {url}",
	"wikipage-changed": "\x02[{project[name]}]\x02 Wikipage \x02#{wikipage[slug]} {wikipage[name]}\x02 changed by {user[name]} {url}",
}

// DefaultTemplate returns the stock template for a key, if one exists.
func DefaultTemplate(key string) (string, bool) {
	tpl, ok := defaultTemplates[key]
	return tpl, ok
}
