package application

import (
	"fmt"
	"time"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
)

// ExpirationWeekdays is the number of elapsed weekdays after which a PR is
// removed automatically.
const ExpirationWeekdays = 5

// IsDueForRemoval reports whether a PR created at createdAt has expired at now.
func (c WorkCalendar) IsDueForRemoval(createdAt, now time.Time) bool {
	return c.ElapsedWeekdays(createdAt, now) >= ExpirationWeekdays
}

// RemovalNotice is the text that replaces an expired PR's chat message.
func RemovalNotice(pr model.PullRequest) string {
	return fmt.Sprintf("PR *<%s|%s>* has been automatically removed after %d working days.",
		pr.Link, pr.Name, ExpirationWeekdays)
}
