package memory

import "soulcircle/internal/domain/entity"

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneLast(in *entity.LastMessage) *entity.LastMessage {
	if in == nil {
		return nil
	}
	c := *in
	return &c
}

func cloneGroup(in *entity.Group) *entity.Group {
	c := *in
	c.Members = cloneStrings(in.Members)
	c.Tags = cloneStrings(in.Tags)
	c.BannedUsers = cloneStrings(in.BannedUsers)
	if in.Roles != nil {
		c.Roles = make(map[string]string, len(in.Roles))
		for k, v := range in.Roles {
			c.Roles[k] = v
		}
	}
	c.LastMessage = cloneLast(in.LastMessage)
	return &c
}

func cloneMessage(in *entity.Message) *entity.Message {
	c := *in
	c.Reactions = make(map[string]string, len(in.Reactions))
	for k, v := range in.Reactions {
		c.Reactions[k] = v
	}
	return &c
}

func cloneConversation(in *entity.Conversation) *entity.Conversation {
	c := *in
	c.Participants = cloneStrings(in.Participants)
	c.UnreadCount = make(map[string]int, len(in.UnreadCount))
	for k, v := range in.UnreadCount {
		c.UnreadCount[k] = v
	}
	c.LastMessage = cloneLast(in.LastMessage)
	return &c
}
