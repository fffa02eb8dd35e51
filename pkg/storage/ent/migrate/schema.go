// Package migrate holds the relational schema shared by the SQL storage
// drivers and applies it with ent's schema migrator.
package migrate

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// textSize matches ent's field.Text() so long columns map to TEXT everywhere.
const textSize = 2147483647

var (
	// StoriesColumns holds the columns for the "stories" table.
	StoriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "title", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "start_date", Type: field.TypeTime, Nullable: true},
		{Name: "end_date", Type: field.TypeTime, Nullable: true},
		{Name: "theming_enabled", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// StoriesTable holds the schema information for the "stories" table.
	StoriesTable = &schema.Table{
		Name:       "stories",
		Columns:    StoriesColumns,
		PrimaryKey: []*schema.Column{StoriesColumns[0]},
	}

	// ContributionsColumns holds the columns for the "contributions" table.
	ContributionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "owner_kind", Type: field.TypeString, Default: "story"},
		{Name: "author_id", Type: field.TypeString, Nullable: true},
		{Name: "author_name", Type: field.TypeString},
		{Name: "subject", Type: field.TypeString, Nullable: true},
		{Name: "body", Type: field.TypeString, Size: textSize},
		{Name: "location", Type: field.TypeString, Nullable: true},
		{Name: "occurred_at", Type: field.TypeTime, Nullable: true},
		{Name: "parent_id", Type: field.TypeString, Nullable: true},
		{Name: "is_memory_worthy", Type: field.TypeBool, Nullable: true},
		{Name: "memory_analysis", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "story_id", Type: field.TypeString},
	}
	// ContributionsTable holds the schema information for the "contributions" table.
	ContributionsTable = &schema.Table{
		Name:       "contributions",
		Columns:    ContributionsColumns,
		PrimaryKey: []*schema.Column{ContributionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "contributions_stories_contributions",
				Columns:    []*schema.Column{ContributionsColumns[12]},
				RefColumns: []*schema.Column{StoriesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "contribution_story_id_created_at",
				Unique:  false,
				Columns: []*schema.Column{ContributionsColumns[12], ContributionsColumns[11]},
			},
			{
				Name:    "contribution_story_id_is_memory_worthy",
				Unique:  false,
				Columns: []*schema.Column{ContributionsColumns[12], ContributionsColumns[9]},
			},
		},
	}

	// EntitiesColumns holds the columns for the "entities" table.
	EntitiesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "name", Type: field.TypeString},
		{Name: "name_key", Type: field.TypeString},
		{Name: "entity_type", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "story_id", Type: field.TypeString},
	}
	// EntitiesTable holds the schema information for the "entities" table.
	EntitiesTable = &schema.Table{
		Name:       "entities",
		Columns:    EntitiesColumns,
		PrimaryKey: []*schema.Column{EntitiesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "entities_stories_entities",
				Columns:    []*schema.Column{EntitiesColumns[5]},
				RefColumns: []*schema.Column{StoriesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "entity_story_id_name_key_entity_type",
				Unique:  true,
				Columns: []*schema.Column{EntitiesColumns[5], EntitiesColumns[2], EntitiesColumns[3]},
			},
		},
	}

	// EntityMentionsColumns holds the columns for the "entity_mentions" table.
	EntityMentionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "mentioned_at", Type: field.TypeTime},
		{Name: "entity_id", Type: field.TypeString},
		{Name: "contribution_id", Type: field.TypeString},
	}
	// EntityMentionsTable holds the schema information for the "entity_mentions" table.
	EntityMentionsTable = &schema.Table{
		Name:       "entity_mentions",
		Columns:    EntityMentionsColumns,
		PrimaryKey: []*schema.Column{EntityMentionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "entity_mentions_entities_mentions",
				Columns:    []*schema.Column{EntityMentionsColumns[3]},
				RefColumns: []*schema.Column{EntitiesColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "entity_mentions_contributions_mentions",
				Columns:    []*schema.Column{EntityMentionsColumns[4]},
				RefColumns: []*schema.Column{ContributionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "entitymention_entity_id_contribution_id",
				Unique:  true,
				Columns: []*schema.Column{EntityMentionsColumns[3], EntityMentionsColumns[4]},
			},
		},
	}

	// StoryThemesColumns holds the columns for the "story_themes" table.
	StoryThemesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "background_image_url", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "icon_pack", Type: field.TypeString, Nullable: true},
		{Name: "metadata", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "story_id", Type: field.TypeString, Unique: true},
		{Name: "source_entity_id", Type: field.TypeString, Nullable: true},
	}
	// StoryThemesTable holds the schema information for the "story_themes" table.
	StoryThemesTable = &schema.Table{
		Name:       "story_themes",
		Columns:    StoryThemesColumns,
		PrimaryKey: []*schema.Column{StoryThemesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "story_themes_stories_theme",
				Columns:    []*schema.Column{StoryThemesColumns[6]},
				RefColumns: []*schema.Column{StoriesColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "story_themes_entities_themes",
				Columns:    []*schema.Column{StoryThemesColumns[7]},
				RefColumns: []*schema.Column{EntitiesColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
	}

	// SynthesizedMemoriesColumns holds the columns for the "synthesized_memories" table.
	SynthesizedMemoriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "content", Type: field.TypeString, Size: textSize},
		{Name: "metadata", Type: field.TypeJSON, Nullable: true},
		{Name: "revision", Type: field.TypeInt},
		{Name: "generated_at", Type: field.TypeTime},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "story_id", Type: field.TypeString, Unique: true},
	}
	// SynthesizedMemoriesTable holds the schema information for the "synthesized_memories" table.
	SynthesizedMemoriesTable = &schema.Table{
		Name:       "synthesized_memories",
		Columns:    SynthesizedMemoriesColumns,
		PrimaryKey: []*schema.Column{SynthesizedMemoriesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "synthesized_memories_stories_synthesized_memory",
				Columns:    []*schema.Column{SynthesizedMemoriesColumns[7]},
				RefColumns: []*schema.Column{StoriesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// SynthesisRevisionsColumns holds the columns for the "synthesis_revisions" table.
	SynthesisRevisionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "revision", Type: field.TypeInt},
		{Name: "content", Type: field.TypeString, Size: textSize},
		{Name: "metadata", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "story_id", Type: field.TypeString},
	}
	// SynthesisRevisionsTable holds the schema information for the "synthesis_revisions" table.
	SynthesisRevisionsTable = &schema.Table{
		Name:       "synthesis_revisions",
		Columns:    SynthesisRevisionsColumns,
		PrimaryKey: []*schema.Column{SynthesisRevisionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "synthesis_revisions_stories_revisions",
				Columns:    []*schema.Column{SynthesisRevisionsColumns[5]},
				RefColumns: []*schema.Column{StoriesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "synthesisrevision_story_id_revision",
				Unique:  true,
				Columns: []*schema.Column{SynthesisRevisionsColumns[5], SynthesisRevisionsColumns[1]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		StoriesTable,
		ContributionsTable,
		EntitiesTable,
		EntityMentionsTable,
		StoryThemesTable,
		SynthesizedMemoriesTable,
		SynthesisRevisionsTable,
	}
)

func init() {
	ContributionsTable.ForeignKeys[0].RefTable = StoriesTable
	EntitiesTable.ForeignKeys[0].RefTable = StoriesTable
	EntityMentionsTable.ForeignKeys[0].RefTable = EntitiesTable
	EntityMentionsTable.ForeignKeys[1].RefTable = ContributionsTable
	StoryThemesTable.ForeignKeys[0].RefTable = StoriesTable
	StoryThemesTable.ForeignKeys[1].RefTable = EntitiesTable
	SynthesizedMemoriesTable.ForeignKeys[0].RefTable = StoriesTable
	SynthesisRevisionsTable.ForeignKeys[0].RefTable = StoriesTable
}

// Create runs an append-only migration of every table against drv.
func Create(ctx context.Context, drv dialect.Driver, opts ...schema.MigrateOption) error {
	m, err := schema.NewMigrate(drv, opts...)
	if err != nil {
		return fmt.Errorf("ent/migrate: %w", err)
	}
	return m.Create(ctx, Tables...)
}
