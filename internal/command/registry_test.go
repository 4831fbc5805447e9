package command

import (
	"context"
	"testing"
)

func testContext(userID string) (*Context, *[]string) {
	replies := &[]string{}
	return &Context{
		Ctx:       context.Background(),
		ChannelID: "room1",
		UserID:    userID,
		UserName:  "Alice",
		Prefix:    ";;",
		Reply:     func(text string) { *replies = append(*replies, text) },
	}, replies
}

func TestDispatchByAlias(t *testing.T) {
	reg := NewRegistry(nil)
	invoked := 0
	reg.Register("aki", Func(func(cc *Context) { invoked++ }), PermissionEveryone, CategoryFun, "akinator")

	cc, _ := testContext("u1")
	for _, alias := range []string{"aki", "AKI", "akinator"} {
		found, allowed := reg.Dispatch(cc, alias)
		if !found || !allowed {
			t.Fatalf("Dispatch(%q): found=%v allowed=%v", alias, found, allowed)
		}
	}
	if invoked != 3 {
		t.Fatalf("invoked = %d", invoked)
	}
}

func TestDispatchUnknown(t *testing.T) {
	reg := NewRegistry(nil)
	cc, _ := testContext("u1")
	if found, _ := reg.Dispatch(cc, "nope"); found {
		t.Fatalf("unknown alias reported found")
	}
}

func TestPermissionGate(t *testing.T) {
	resolve := func(userID string) PermissionLevel {
		if userID == "owner" {
			return PermissionOwner
		}
		return PermissionEveryone
	}
	reg := NewRegistry(resolve)
	invoked := 0
	reg.Register("restart", Func(func(cc *Context) { invoked++ }), PermissionOwner, CategoryMaintenance)

	cc, _ := testContext("u1")
	found, allowed := reg.Dispatch(cc, "restart")
	if !found || allowed {
		t.Fatalf("everyone user: found=%v allowed=%v", found, allowed)
	}
	if invoked != 0 {
		t.Fatalf("command ran without permission")
	}

	oc, _ := testContext("owner")
	if _, allowed := reg.Dispatch(oc, "restart"); !allowed {
		t.Fatalf("owner should be allowed")
	}
	if invoked != 1 {
		t.Fatalf("invoked = %d", invoked)
	}
}

func TestAliasCollisionLastWins(t *testing.T) {
	reg := NewRegistry(nil)
	var got string
	reg.Register("first", Func(func(cc *Context) { got = "first" }), PermissionEveryone, CategoryFun, "x")
	reg.Register("second", Func(func(cc *Context) { got = "second" }), PermissionEveryone, CategoryFun, "x")

	cc, _ := testContext("u1")
	reg.Dispatch(cc, "x")
	if got != "second" {
		t.Fatalf("alias resolved to %q", got)
	}
}

func TestNamesFiltersByCategoryAndLevel(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("aki", Func(func(cc *Context) {}), PermissionEveryone, CategoryFun)
	reg.Register("mal", Func(func(cc *Context) {}), PermissionEveryone, CategoryUtil)
	reg.Register("sessions", Func(func(cc *Context) {}), PermissionAdmin, CategoryMaintenance)
	reg.Register("restart", Func(func(cc *Context) {}), PermissionOwner, CategoryMaintenance)

	fun := reg.Names(CategoryFun, PermissionEveryone)
	if len(fun) != 1 || fun[0] != "aki" {
		t.Fatalf("fun = %v", fun)
	}
	if names := reg.Names(CategoryMaintenance, PermissionEveryone); len(names) != 0 {
		t.Fatalf("maintenance visible to everyone: %v", names)
	}
	if names := reg.Names(CategoryMaintenance, PermissionAdmin); len(names) != 1 || names[0] != "sessions" {
		t.Fatalf("admin listing = %v", names)
	}
	if names := reg.Names(CategoryMaintenance, PermissionOwner); len(names) != 2 {
		t.Fatalf("maintenance hidden from owner: %v", names)
	}
}

// The listing callers resolve the invoker's level through the registry, so
// the same resolver gates dispatch and visibility.
func TestLevelFor(t *testing.T) {
	resolve := func(userID string) PermissionLevel {
		switch userID {
		case "owner":
			return PermissionOwner
		case "admin":
			return PermissionAdmin
		}
		return PermissionEveryone
	}
	reg := NewRegistry(resolve)
	reg.Register("restart", Func(func(cc *Context) {}), PermissionOwner, CategoryMaintenance)

	if got := reg.LevelFor("owner"); got != PermissionOwner {
		t.Fatalf("owner level = %v", got)
	}
	if got := reg.LevelFor("admin"); got != PermissionAdmin {
		t.Fatalf("admin level = %v", got)
	}
	if got := reg.LevelFor("u1"); got != PermissionEveryone {
		t.Fatalf("default level = %v", got)
	}
	if names := reg.Names(CategoryMaintenance, reg.LevelFor("u1")); len(names) != 0 {
		t.Fatalf("restricted command shown to everyone: %v", names)
	}
	if names := reg.Names(CategoryMaintenance, reg.LevelFor("owner")); len(names) != 1 {
		t.Fatalf("restricted command hidden from owner: %v", names)
	}
	if NewRegistry(nil).LevelFor("anyone") != PermissionEveryone {
		t.Fatalf("nil resolver should grant the lowest level")
	}
}

func TestStaticCommands(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("lenny", NewTextCommand("( ͡° ͜ʖ ͡°)"), PermissionEveryone, CategoryMemes)
	reg.Register("dog", NewRemoteFileCommand("https://example.com/dog.png"), PermissionEveryone, CategoryMemes)

	cc, replies := testContext("u1")
	reg.Dispatch(cc, "lenny")
	reg.Dispatch(cc, "dog")
	if len(*replies) != 2 || (*replies)[0] != "( ͡° ͜ʖ ͡°)" || (*replies)[1] != "https://example.com/dog.png" {
		t.Fatalf("replies = %v", *replies)
	}
}

func TestHelpProvider(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("lenny", &TextCommand{Text: "x", HelpText: "posts a lenny face"}, PermissionEveryone, CategoryMemes)

	text, ok := reg.Help("lenny", ";;")
	if !ok || text != "posts a lenny face" {
		t.Fatalf("Help = %q ok=%v", text, ok)
	}
	if _, ok := reg.Help("missing", ";;"); ok {
		t.Fatalf("help for unknown alias")
	}
}
