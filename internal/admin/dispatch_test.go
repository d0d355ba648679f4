package admin

import (
	"testing"

	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/testutil/testlog"
)

type chatSink struct{ got []ChatMessage }

func (s *chatSink) ChatReceived(m ChatMessage) { s.got = append(s.got, m) }

type companySink struct {
	BaseCompanyListener
	infos   []CompanyInfo
	updates []CompanyInfo
	removed []protocol.RemoveReason
}

func (s *companySink) CompanyInfoReceived(info CompanyInfo) { s.infos = append(s.infos, info) }
func (s *companySink) CompanyUpdated(info CompanyInfo)      { s.updates = append(s.updates, info) }
func (s *companySink) CompanyRemoved(_ uint8, r protocol.RemoveReason) {
	s.removed = append(s.removed, r)
}

func TestDispatchChatRecipients(t *testing.T) {
	testlog.Start(t)
	d := &dispatcher{server: "test"}
	sink := &chatSink{}
	d.chats.add(sink)

	cases := []struct {
		action protocol.NetworkAction
		dest   protocol.DestType
		want   Recipient
	}{
		{protocol.ActionChat, protocol.DestBroadcast, RecipientAll},
		{protocol.ActionChatCompany, protocol.DestTeam, RecipientCompany},
		{protocol.ActionChatClient, protocol.DestClient, RecipientClient},
		{protocol.ActionChat, protocol.DestClient, RecipientOther},
		{protocol.ActionGiveMoney, protocol.DestBroadcast, RecipientOther},
	}
	for _, tc := range cases {
		d.dispatch(protocol.ServerChat{Action: tc.action, Dest: tc.dest, ClientID: 3, Message: "hi"})
	}
	if len(sink.got) != len(cases) {
		t.Fatalf("got %d messages, want %d", len(sink.got), len(cases))
	}
	for i, tc := range cases {
		if sink.got[i].Recipient != tc.want {
			t.Fatalf("case %d: recipient=%s want=%s", i, sink.got[i].Recipient, tc.want)
		}
		if sink.got[i].ClientID != 3 || sink.got[i].Message != "hi" {
			t.Fatalf("case %d: payload lost: %+v", i, sink.got[i])
		}
	}
}

func TestDispatchCompanyEvents(t *testing.T) {
	testlog.Start(t)
	d := &dispatcher{server: "test"}
	sink := &companySink{}
	d.companies.add(sink)

	d.dispatch(protocol.ServerCompanyInfo{CompanyID: 2, Name: "Acme", Manager: "Ann", Inaugurated: 1950, AI: true})
	d.dispatch(protocol.ServerCompanyUpdate{CompanyID: 2, Name: "Acme Transport", Manager: "Ann"})
	d.dispatch(protocol.ServerCompanyRemove{CompanyID: 2, Reason: protocol.RemoveBankrupt})

	if len(sink.infos) != 1 || !sink.infos[0].Full {
		t.Fatalf("expected one full company info, got %+v", sink.infos)
	}
	if len(sink.updates) != 1 || sink.updates[0].Full {
		t.Fatalf("expected one delta update, got %+v", sink.updates)
	}
	merged := sink.infos[0].Merge(sink.updates[0])
	if merged.Name != "Acme Transport" || merged.Inaugurated != 1950 || !merged.AI || !merged.Full {
		t.Fatalf("merge lost fields: %+v", merged)
	}
	if len(sink.removed) != 1 || sink.removed[0] != protocol.RemoveBankrupt {
		t.Fatalf("removed = %v", sink.removed)
	}
}

func TestListenerSetCopyOnWrite(t *testing.T) {
	testlog.Start(t)
	var set listenerSet[ChatListener]
	a, b := &chatSink{}, &chatSink{}
	removeA := set.add(a)
	set.add(b)

	snapshot := set.load()
	removeA()
	if len(snapshot) != 2 {
		t.Fatalf("snapshot mutated by remove: len=%d", len(snapshot))
	}
	if set.len() != 1 {
		t.Fatalf("len after remove = %d", set.len())
	}
	removeA()
	if set.len() != 1 {
		t.Fatalf("double remove changed set: len=%d", set.len())
	}
}
