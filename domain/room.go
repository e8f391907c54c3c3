// Package domain contains core concepts of the chat system.
// This file defines the Room aggregate: membership, public history and
// private pair histories, all guarded by a single room-level mutex.
package domain

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Member is the delivery target a Room notifies when chat events occur.
// Notify carries a full Message (the member decides how to render and
// whether a private message concerns it). Push carries a raw protocol
// line such as a [SYSTEM] notice or a [USERS] snapshot.
type Member interface {
	Notify(msg Message) error
	Push(line string) error
}

// Room is the single authority over membership and message ordering for
// one room name. Every mutating operation runs under the same mutex, so
// joins, leaves, broadcasts and private sends are totally ordered as
// observed by history and by delivery to members.
//
// Rooms live for the whole server process and are never destroyed, even
// when empty. History is unbounded in memory; there is no eviction.
type Room struct {
	id  string
	log *slog.Logger

	mu               sync.Mutex
	order            []string
	members          map[string]Member
	history          []Message
	privateHistories map[string][]Message
}

func NewRoom(id string, log *slog.Logger) *Room {
	return &Room{
		id:               id,
		log:              log,
		members:          make(map[string]Member),
		privateHistories: make(map[string][]Message),
	}
}

func (r *Room) ID() string { return r.id }

// AddUser registers a member under username. It returns false without
// any state change when the username is already taken in this room.
// On success the join notice is appended to history and every current
// member, the newcomer included, receives the notice and a refreshed
// active-user list.
func (r *Room) AddUser(username string, member Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.members[username]; taken {
		return false
	}
	r.members[username] = member
	r.order = append(r.order, username)

	r.broadcastSystemLocked(fmt.Sprintf("%s joined the room", username))
	r.pushActiveUsersLocked()
	r.log.Info("User joined room", "user", username, "room", r.id)
	return true
}

// RemoveUser unregisters username. Removing an absent user is a no-op,
// so the call is idempotent. Remaining members receive the leave notice
// and the refreshed active-user list.
func (r *Room) RemoveUser(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, present := r.members[username]; !present {
		return
	}
	delete(r.members, username)
	for i, name := range r.order {
		if name == username {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.broadcastSystemLocked(fmt.Sprintf("%s left the room", username))
	r.pushActiveUsersLocked()
	r.log.Info("User left room", "user", username, "room", r.id)
}

// Broadcast appends msg to history and delivers it to every current
// member exactly once, in membership order. A delivery fault for one
// member is logged and never aborts delivery to the others.
func (r *Room) Broadcast(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, msg)
	for _, username := range r.order {
		if err := r.members[username].Notify(msg); err != nil {
			r.log.Warn("Failed to deliver message", "user", username, "room", r.id, "err", err)
		}
	}
}

// SendPrivate records a private message in the symmetric pair history
// for {from, to} and delivers it to the recipient if joined, plus an
// echo to the sender if joined and distinct. An absent recipient is not
// an error: the message is still recorded.
func (r *Room) SendPrivate(from, to, text string) error {
	msg, err := NewMessage(from, to, text, true)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(from, to)
	r.privateHistories[key] = append(r.privateHistories[key], msg)

	target, targetJoined := r.members[to]
	if targetJoined {
		if err := target.Notify(msg); err != nil {
			r.log.Warn("Failed private delivery", "to", to, "room", r.id, "err", err)
		}
	}
	if sender, ok := r.members[from]; ok && from != to {
		if err := sender.Notify(msg); err != nil {
			r.log.Warn("Failed private echo", "from", from, "room", r.id, "err", err)
		}
	}
	return nil
}

// ActiveUsers returns a snapshot of current usernames in join order.
func (r *Room) ActiveUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]string, len(r.order))
	copy(users, r.order)
	return users
}

// History returns a copy of the room history; mutating the result or
// the room afterwards does not affect the other.
func (r *Room) History() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := make([]Message, len(r.history))
	copy(history, r.history)
	return history
}

// PrivateHistory returns a copy of the private conversation between the
// two users, independent of send direction.
func (r *Room) PrivateHistory(userA, userB string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.privateHistories[pairKey(userA, userB)]
	history := make([]Message, len(stored))
	copy(history, stored)
	return history
}

// broadcastSystemLocked appends a system notice to history and pushes
// the [SYSTEM] line to every member. Callers must hold r.mu.
func (r *Room) broadcastSystemLocked(text string) {
	r.history = append(r.history, NewSystemMessage(text))
	for _, username := range r.order {
		if err := r.members[username].Push("[SYSTEM] " + text); err != nil {
			r.log.Warn("Failed to push system notice", "user", username, "room", r.id, "err", err)
		}
	}
}

// pushActiveUsersLocked sends the refreshed comma-joined user list to
// every member. Callers must hold r.mu.
func (r *Room) pushActiveUsersLocked() {
	line := "[USERS] " + strings.Join(r.order, ",")
	for _, username := range r.order {
		if err := r.members[username].Push(line); err != nil {
			r.log.Warn("Failed to push users list", "user", username, "room", r.id, "err", err)
		}
	}
}

// pairKey builds the direction-independent key for a private history,
// so both participants share one conversation sequence.
func pairKey(userA, userB string) string {
	if userA < userB {
		return userA + ":" + userB
	}
	return userB + ":" + userA
}
