// Package repo implements the record store for the gym club, backed by GORM.
// This file provides small aggregate queries across both stores, used by the
// CLI "stats" command.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/gymclub/internal/domain"
)

// StoreStats summarizes the contents of the gym and chat stores.
type StoreStats struct {
	Members int64
	Tutors  int64
	Classes int64
	Chats   int64
	// MaxChatRevision is the highest revision of any chat row, 0 when there
	// are no chats or none has been written to.
	MaxChatRevision int64
}

// CollectStats counts rows in gym and chat.
//
// Return values:
//   - stats: the counts; zero values for empty tables
//   - err:   database error, if any
func CollectStats(ctx context.Context, gym, chat *gorm.DB) (stats StoreStats, err error) {
	g := gym.WithContext(ctx)
	if err = g.Model(&domain.Member{}).Count(&stats.Members).Error; err != nil {
		return StoreStats{}, err
	}
	if err = g.Model(&domain.Member{}).Where("is_tutor = ?", true).Count(&stats.Tutors).Error; err != nil {
		return StoreStats{}, err
	}
	if err = g.Model(&domain.ClassRecord{}).Count(&stats.Classes).Error; err != nil {
		return StoreStats{}, err
	}

	q := chat.WithContext(ctx).Model(&domain.ChatRecord{})
	if err = q.Count(&stats.Chats).Error; err != nil {
		return StoreStats{}, err
	}
	if stats.Chats == 0 {
		return stats, nil
	}

	var row struct {
		Revision int64
	}
	if err = q.Select("revision").Order("revision DESC").Limit(1).Scan(&row).Error; err != nil {
		return StoreStats{}, err
	}
	stats.MaxChatRevision = row.Revision
	return stats, nil
}
