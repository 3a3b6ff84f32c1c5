package group

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/student"
)

// assignmentMessages builds one email per member of `groups`, naming their group and teammates.
func assignmentMessages(groups []Group, roster []student.Student) []*core.EmailMessage {
	byID := make(map[string]student.Student, len(roster))
	for _, st := range roster {
		byID[st.ID] = st
	}

	messages := make([]*core.EmailMessage, 0, len(roster))
	for _, g := range groups {
		for _, id := range g.MemberIDs {
			st, ok := byID[id]
			if !ok || st.Email == "" {
				continue
			}

			mates := make([]string, 0, len(g.MemberIDs)-1)
			for _, mateID := range g.MemberIDs {
				if mate, ok := byID[mateID]; ok && mateID != id {
					mates = append(mates, mate.Name)
				}
			}

			var body strings.Builder
			fmt.Fprintf(&body, "Hello %s,\n\nYou have been assigned to %s.", st.Name, g.Name)
			if len(mates) > 0 {
				fmt.Fprintf(&body, "\n\nYour teammates: %s.", strings.Join(mates, ", "))
			}
			if g.AINotes != "" {
				fmt.Fprintf(&body, "\n\n%s", g.AINotes)
			}

			messages = append(messages, &core.EmailMessage{
				To:      []mail.Address{{Name: st.Name, Address: st.Email}},
				Subject: "Your group: " + g.Name,
				BodyStr: body.String(),
			})
		}
	}
	return messages
}
