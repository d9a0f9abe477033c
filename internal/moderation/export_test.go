package moderation

func (m *Moderator) Admins() *AdminCache { return m.admins }

func (m *Moderator) Violations() *ViolationTracker { return m.violations }

func (c *AdminCache) Len() int { return c.size() }

func (t *ViolationTracker) Count(groupID, userID string) int { return t.count(groupID, userID) }

func (t *ViolationTracker) Tracked(groupID, userID string) bool { return t.tracked(groupID, userID) }

func (t *ViolationTracker) Len() int { return t.size() }
