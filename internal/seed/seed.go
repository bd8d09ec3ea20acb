package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SystemActorID is recorded as the creator of seeded causes.
const SystemActorID snowflake.ID = 1

type sampleCause struct {
	title        string
	description  string
	category     string
	targetAmount int64
	days         int
	image        string
}

var sampleCauses = []sampleCause{
	{
		title:        "Bantuan Laptop untuk Mahasiswa Kurang Mampu",
		description:  "Pengadaan laptop untuk mahasiswa yang membutuhkan perangkat kuliah daring.",
		category:     "pendidikan",
		targetAmount: 50_000_000,
		days:         60,
		image:        "https://images.unsplash.com/photo-1588872657578-7efd1f1555ed?w=800",
	},
	{
		title:        "Beasiswa Prestasi Mahasiswa",
		description:  "Beasiswa biaya kuliah satu semester untuk mahasiswa berprestasi.",
		category:     "pendidikan",
		targetAmount: 75_000_000,
		days:         75,
		image:        "https://images.unsplash.com/photo-1523050854058-8df90110c9f1?w=800",
	},
	{
		title:        "Bantuan Kesehatan untuk Mahasiswa",
		description:  "Biaya pengobatan dan pemeriksaan kesehatan bagi mahasiswa yang sakit.",
		category:     "kesehatan",
		targetAmount: 30_000_000,
		days:         90,
		image:        "https://images.unsplash.com/photo-1576091160399-112ba8d25d1d?w=800",
	},
	{
		title:        "Bantuan Korban Bencana Alam",
		description:  "Paket logistik dan hunian sementara untuk korban bencana.",
		category:     "bencana",
		targetAmount: 40_000_000,
		days:         120,
		image:        "https://images.unsplash.com/photo-1469571486292-0ba58a3f068b?w=800",
	},
	{
		title:        "Program Kegiatan Sosial Kampus",
		description:  "Bakti sosial dan kegiatan pengabdian masyarakat oleh mahasiswa.",
		category:     "sosial",
		targetAmount: 25_000_000,
		days:         45,
		image:        "https://images.unsplash.com/photo-1559027615-cd4628902d4a?w=800",
	},
	{
		title:        "Renovasi Perpustakaan Kampus",
		description:  "Perbaikan ruang baca dan penambahan koleksi buku perpustakaan.",
		category:     "infrastruktur",
		targetAmount: 100_000_000,
		days:         180,
		image:        "https://images.unsplash.com/photo-1521587760476-6c12a4b040da?w=800",
	},
}

// EnsureSampleCauses creates the sample causes through the cause service when the causes
// table is empty. It returns the number of causes created.
func EnsureSampleCauses(ctx context.Context, db *gorm.DB, causes causedomain.Service, now time.Time, log *zap.Logger) (int, error) {
	if db == nil || causes == nil {
		return 0, errors.New("seed requires a database handle and cause service")
	}

	var existing int64
	if err := db.WithContext(ctx).Model(&causedomain.Cause{}).Count(&existing).Error; err != nil {
		return 0, err
	}
	if existing > 0 {
		log.Info("skipping sample causes", zap.Int64("existing", existing))
		return 0, nil
	}

	created := 0
	for _, sample := range sampleCauses {
		_, err := causes.Create(ctx, causedomain.CreateRequest{
			Title:        sample.title,
			Description:  sample.description,
			Category:     sample.category,
			TargetAmount: sample.targetAmount,
			Image:        sample.image,
			Deadline:     now.AddDate(0, 0, sample.days),
			CreatedBy:    SystemActorID,
		})
		if err != nil {
			return created, err
		}
		created++
	}
	log.Info("seeded sample causes", zap.Int("count", created))
	return created, nil
}
