package bot

import (
	"context"
	"fmt"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/tg"
)

// peerStore is the subset of gotgproto's peer storage used to cache access hashes
type peerStore interface {
	GetInputPeerById(id int64) tg.InputPeerClass
	AddPeer(id, accessHash int64, peerType storage.EntityType, username string)
}

// peerAPI fetches users and channels a bot may address with a zero access hash
type peerAPI interface {
	ChannelsGetChannels(ctx context.Context, id []tg.InputChannelClass) (tg.MessagesChatsClass, error)
	UsersGetUsers(ctx context.Context, id []tg.InputUserClass) ([]tg.UserClass, error)
}

// splitChatID turns a bot API style chat id into the MTProto id and entity type
func splitChatID(chatID int64) (int64, storage.EntityType) {
	switch {
	case chatID > 0:
		return chatID, storage.TypeUser
	case chatID < -channelIDOffset:
		return -chatID - channelIDOffset, storage.TypeChannel
	default:
		return -chatID, storage.TypeChat
	}
}

// resolvePeer returns an input peer carrying the access hash for chatID. Known
// peers come from store; users and channels are otherwise fetched once and
// saved to store.
func resolvePeer(ctx context.Context, store peerStore, api peerAPI, chatID int64) (tg.InputPeerClass, error) {
	id, kind := splitChatID(chatID)
	if peer := store.GetInputPeerById(id); peer != nil {
		if _, empty := peer.(*tg.InputPeerEmpty); !empty {
			return peer, nil
		}
	}

	switch kind {
	case storage.TypeChannel:
		res, err := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{&tg.InputChannel{ChannelID: id}})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch channel %d: %w", id, err)
		}
		for _, chat := range res.GetChats() {
			if ch, ok := chat.(*tg.Channel); ok && ch.ID == id {
				store.AddPeer(ch.ID, ch.AccessHash, storage.TypeChannel, ch.Username)
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
			}
		}
		return nil, fmt.Errorf("channel %d not found", id)

	case storage.TypeUser:
		users, err := api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUser{UserID: id}})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch user %d: %w", id, err)
		}
		for _, u := range users {
			if user, ok := u.(*tg.User); ok && user.ID == id {
				store.AddPeer(user.ID, user.AccessHash, storage.TypeUser, user.Username)
				return &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, nil
			}
		}
		return nil, fmt.Errorf("user %d not found", id)

	default:
		// basic groups have no access hash
		return &tg.InputPeerChat{ChatID: id}, nil
	}
}
