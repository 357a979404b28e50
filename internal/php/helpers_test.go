package php

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shinyvision/twiglens/internal/config"
	"github.com/stretchr/testify/require"
)

const postSource = `<?php

namespace App\Entity;

use Doctrine\ORM\Mapping as ORM;
use App\Repository\PostRepository;

#[ORM\Entity(repositoryClass: PostRepository::class)]
class Post extends Content
{
    use Timestampable;

    public const STATUS_DRAFT = 'draft';
    private const SECRET = 'x';

    #[ORM\Column(type: 'string', length: 255)]
    public string $title;

    /** @var Comment[] */
    #[ORM\OneToMany(targetEntity: Comment::class, mappedBy: 'post')]
    private array $comments = [];

    #[ORM\ManyToOne]
    private ?User $author = null;

    public function __construct(public readonly int $id, private string $slug)
    {
    }

    /**
     * @return Comment[]
     */
    public function getComments(): array
    {
        return $this->comments;
    }

    public function getAuthor(): ?User
    {
        return $this->author;
    }

    protected function internal(): self
    {
        return $this;
    }
}
`

const contentSource = `<?php

namespace App\Entity;

abstract class Content
{
    public function getTitle(): string
    {
        return '';
    }

    public function isPublished(): bool
    {
        return true;
    }

    public function getAuthor(): mixed
    {
        return null;
    }
}
`

const timestampableSource = `<?php

namespace App\Entity;

trait Timestampable
{
    public ?\DateTimeImmutable $createdAt = null;
}
`

const extensionSource = `<?php

namespace App\Twig;

use App\Entity\Post;
use Twig\Extension\AbstractExtension;
use Twig\TwigFunction;

class AppExtension extends AbstractExtension
{
    public function getFunctions(): array
    {
        return [
            new TwigFunction('latest_posts', [$this, 'latestPosts']),
            new TwigFunction('featured', [PostRuntime::class, 'featured']),
            new TwigFunction('now', fn () => new \DateTime()),
        ];
    }

    /** @return Post[] */
    public function latestPosts(int $limit = 5): array
    {
        return [];
    }
}
`

const runtimeSource = `<?php

namespace App\Twig;

use App\Entity\Post;

class PostRuntime
{
    public function featured(): ?Post
    {
        return null;
    }
}
`

const repositorySource = `<?php

namespace App\Repository;

use App\Entity\Post;
use Doctrine\ORM\EntityRepository;

class PostRepository extends EntityRepository
{
    public function findPublished(): array
    {
        return $this->getEntityManager()
            ->createQuery('SELECT p FROM App\Entity\Post p WHERE p.title = :title')
            ->getResult();
    }

    public function other(): string
    {
        return strtoupper('SELECT nothing');
    }
}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newTestStore(t *testing.T) (*DocumentStore, string) {
	t.Helper()
	root := writeFiles(t, map[string]string{
		"src/Entity/Post.php":               postSource,
		"src/Entity/Content.php":            contentSource,
		"src/Entity/Timestampable.php":      timestampableSource,
		"src/Twig/AppExtension.php":         extensionSource,
		"src/Twig/PostRuntime.php":          runtimeSource,
		"src/Repository/PostRepository.php": repositorySource,
	})
	store := NewDocumentStore(20)
	store.Configure(testAutoload(), root)
	return store, root
}

func testAutoload() config.AutoloadMap {
	return config.AutoloadMap{PSR4: config.Psr4Map{`App\`: {"src"}}}
}

func parseSummary(t *testing.T, source string) FileSummary {
	t.Helper()
	doc := NewDocument()
	t.Cleanup(doc.Close)
	require.NoError(t, doc.Update([]byte(source), nil))
	return doc.Summary()
}
