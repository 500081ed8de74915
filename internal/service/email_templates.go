package service

import "fmt"

func friendRequestEmailTemplate(fromName, profileURL, appName string) (string, string) {
	subject := fmt.Sprintf("%s wants to be your friend on %s", fromName, appName)
	body := fmt.Sprintf(`Hi,

%s sent you a friend request on %s. Friends can cheer you on, send you daily boosts and give you missions.

Accept or decline it from your profile:
%s

Best,
The %s Team`, fromName, appName, profileURL, appName)

	return subject, body
}

func missionReceivedEmailTemplate(fromName, title, challengerURL, appName string) (string, string) {
	subject := fmt.Sprintf("New mission from %s: %s", fromName, title)
	body := fmt.Sprintf(`Hi,

%s just sent you a mission: "%s".

Open your mission board to accept or reject it:
%s

Best,
The %s Team`, fromName, title, challengerURL, appName)

	return subject, body
}
